package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

func TestPeekPoke(t *testing.T) {
	c := NewController(1<<16, 4096)
	w := ddr.Word{Hi: 0x01234567, Lo: 0x89abcdef}
	require.NoError(t, c.Poke(42, w))
	got, err := c.Peek(42)
	require.NoError(t, err)
	require.Equal(t, w, got)
	require.Error(t, c.Poke(1<<13, w))
}

func TestViolations(t *testing.T) {
	c := NewController(1<<16, 4096)
	c.Write32(ddr.RegMOSIHi, 0)
	c.Write32(ddr.RegMOSIValid, 1)
	c.ReadWindow(0, make([]byte, 8))
	require.Len(t, c.Violations(), 2)
	require.Equal(t, 2, c.RegisterWrites())
}

func TestReadFillsGradually(t *testing.T) {
	c := NewController(1<<16, 4096)
	c.FillRate = 16
	hi, lo := ddr.Request{Dir: ddr.DirRead, Doublewords: 8, Addr: 2}.Encode()
	c.Write32(ddr.RegMOSIHi, hi)
	c.Write32(ddr.RegMOSILo, lo)
	c.Write32(ddr.RegMOSIValid, 1)

	for _, expect := range []uint32{16, 32, 48, 64, 64} {
		require.Equal(t, expect, c.Read32(ddr.RegDMemWritePtr))
	}
	require.Equal(t, uint32(1), c.Read32(ddr.RegMISOValid))
	c.Write32(ddr.RegMISOValid, 0)
	require.Zero(t, c.Read32(ddr.RegMISOValid))
	require.Empty(t, c.Violations())
}
