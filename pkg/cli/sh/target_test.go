package sh

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
)

func newTarget(echo bool) *Target {
	conf := bridge.NewConfig()
	conf.Window, conf.BurstMax, conf.Echo = 64, 128, echo
	return NewTarget(1<<20, conf)
}

func TestPeekPoke(t *testing.T) {
	tg := newTarget(false)
	ctx := context.Background()
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	require.NoError(t, tg.Poke(ctx, 5, data))
	out, err := tg.Peek(ctx, 5, 2)
	require.NoError(t, err)
	require.Equal(t, data, out)

	_, err = tg.Peek(ctx, 0, 0)
	require.True(t, errors.Is(err, ddr.ErrBadLength))
	require.Error(t, tg.Poke(ctx, 0, data[:3]))
}

func TestPeekSplitsBursts(t *testing.T) {
	tg := newTarget(false)
	ctx := context.Background()
	data := make([]byte, ddr.MaxBurstBytes+16)
	for i := range data {
		data[i] = byte(i * 5)
	}
	require.NoError(t, tg.Poke(ctx, 0, data[:ddr.MaxBurstBytes]))
	require.NoError(t, tg.Poke(ctx, ddr.MaxBurstDoublewords, data[ddr.MaxBurstBytes:]))
	out, err := tg.Peek(ctx, 0, len(data)/ddr.DoublewordBytes)
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Empty(t, tg.Status().Violations)
}

func TestUploadPadsAndEchoes(t *testing.T) {
	tg := newTarget(true)
	ctx := context.Background()
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i + 1)
	}
	res, err := tg.Upload(ctx, data)
	require.NoError(t, err)
	require.Equal(t, 8, res.Echo)
	// zero buffer before the first patch, then the swapped head of patch 0
	require.Equal(t, []byte{1, 1, 1, 1, 4 ^ 1, 3 ^ 1, 2 ^ 1, 1 ^ 1}, res.Sent)

	out, err := tg.Peek(ctx, 0, 16)
	require.NoError(t, err)
	expect := append(append([]byte(nil), data...), make([]byte, 28)...)
	bridge.ConvertEndian(expect)
	require.Equal(t, expect, out)
}

func TestDownload(t *testing.T) {
	tg := newTarget(false)
	ctx := context.Background()
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(255 - i)
	}
	require.NoError(t, tg.Poke(ctx, 0, data[:128]))
	require.NoError(t, tg.Poke(ctx, 16, data[128:]))
	res, err := tg.Download(ctx, 0, len(data))
	require.NoError(t, err)
	require.Equal(t, data, res.Sent)

	_, err = tg.Download(ctx, 0, 12)
	require.True(t, errors.Is(err, bridge.ErrBadSize))
}

func TestSelfTest(t *testing.T) {
	for _, echo := range []bool{false, true} {
		tg := newTarget(echo)
		require.NoError(t, tg.SelfTest(context.Background(), 256))
		st := tg.Status()
		require.Empty(t, st.Violations)
		require.Equal(t, "idle", st.State)
	}
}

func TestParseArgs(t *testing.T) {
	addr, err := ParseAddr("0x10")
	require.NoError(t, err)
	require.Equal(t, ddr.Addr(16), addr)
	_, err = ParseAddr("x")
	require.Error(t, err)

	data, err := ParseData([]string{"0102", "ff"})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 0xff}, data)
	_, err = ParseData([]string{"zz"})
	require.Error(t, err)
}
