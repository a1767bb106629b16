package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/ddrlink/pkg/ddr"
	"github.com/robotalks/ddrlink/pkg/ddr/sim"
)

type memOp struct {
	dir  ddr.Direction
	addr ddr.Addr
	data []byte
}

// recordMemory records every call; reads return a pattern seeded by the
// address.
type recordMemory struct {
	ops []memOp
}

func (m *recordMemory) Write(ctx context.Context, addr ddr.Addr, data []byte) error {
	m.ops = append(m.ops, memOp{ddr.DirWrite, addr, append([]byte(nil), data...)})
	return nil
}

func (m *recordMemory) Read(ctx context.Context, addr ddr.Addr, out []byte) error {
	for i := range out {
		out[i] = byte(addr) + byte(i)
	}
	m.ops = append(m.ops, memOp{ddr.DirRead, addr, append([]byte(nil), out...)})
	return nil
}

// recordReporter keeps transfer IDs apart so reports compare by value.
type recordReporter struct {
	patches   []Patch
	summaries []Summary
	patchIDs  []xid.ID
	doneIDs   []xid.ID
}

func (r *recordReporter) PatchDone(ctx context.Context, p Patch) {
	r.patchIDs = append(r.patchIDs, p.Transfer)
	p.Transfer = xid.ID{}
	r.patches = append(r.patches, p)
}

func (r *recordReporter) TransferDone(ctx context.Context, s Summary) {
	r.doneIDs = append(r.doneIDs, s.Transfer)
	s.Transfer = xid.ID{}
	r.summaries = append(r.summaries, s)
}

func payload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*13 + i/256)
	}
	return p
}

func swapped(p []byte) []byte {
	s := append([]byte(nil), p...)
	ConvertEndian(s)
	return s
}

func newBridge(mem Memory, t Transport) *Bridge {
	return &Bridge{Memory: mem, Transport: t, Window: 1024, BurstMax: ddr.MaxBurstBytes, Echo: true}
}

func TestConvertEndian(t *testing.T) {
	p := []byte{0x67, 0x45, 0x23, 0x01, 0xef, 0xcd, 0xab, 0x89, 0xaa}
	ConvertEndian(p)
	require.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0xaa}, p)
}

func TestUploadSinglePatch(t *testing.T) {
	data := payload(1024)
	mem, tr := &recordMemory{}, NewBufferTransport(data)
	require.NoError(t, newBridge(mem, tr).Upload(context.Background(), 1024))

	require.Len(t, mem.ops, 1)
	require.Equal(t, ddr.DirWrite, mem.ops[0].dir)
	require.Equal(t, ddr.Addr(0), mem.ops[0].addr)
	for i := 0; i < len(data); i += 4 {
		require.Equal(t, []byte{data[i+3], data[i+2], data[i+1], data[i]}, mem.ops[0].data[i:i+4], "group %d", i/4)
	}
	require.Equal(t, []byte{1, 1, 1, 1}, tr.Sent())
	require.Zero(t, tr.Pending())
}

func TestUploadPatchBoundary(t *testing.T) {
	data := payload(3 * 1024)
	mem, rep := &recordMemory{}, &recordReporter{}
	b := newBridge(mem, NewBufferTransport(data))
	b.Reporter = rep
	require.NoError(t, b.Upload(context.Background(), len(data)))

	require.Len(t, mem.ops, 3)
	for i, op := range mem.ops {
		require.Equal(t, ddr.Addr(i*128), op.addr)
		require.Equal(t, swapped(data[i*1024:(i+1)*1024]), op.data)
	}
	require.Len(t, rep.patches, 3)
	require.Equal(t, Patch{Dir: ddr.DirWrite, Index: 2, Address: 256, Bytes: 1024, Total: 3072}, rep.patches[2])
	require.Equal(t, []Summary{{Dir: ddr.DirWrite, Bytes: 3072, Patches: 3}}, rep.summaries)
}

func TestUploadOneBytePerCall(t *testing.T) {
	data := payload(1024)
	tr := NewBufferTransport(data)
	tr.MaxChunk = 1
	mem := &recordMemory{}
	b := newBridge(mem, tr)
	b.Echo = false
	require.NoError(t, b.Upload(context.Background(), 1024))

	require.Equal(t, 1024, tr.Calls())
	require.Len(t, mem.ops, 1)
	require.Equal(t, swapped(data), mem.ops[0].data)
	require.Empty(t, tr.Sent())
}

func TestUploadEchoesPreviousPatch(t *testing.T) {
	data := payload(2 * 1024)
	tr := NewBufferTransport(data)
	require.NoError(t, newBridge(&recordMemory{}, tr).Upload(context.Background(), len(data)))

	sent := tr.Sent()
	require.Len(t, sent, 8)
	require.Equal(t, []byte{1, 1, 1, 1}, sent[:4])
	require.Equal(t, []byte{data[3] ^ 1, data[2] ^ 1, data[1] ^ 1, data[0] ^ 1}, sent[4:])
}

func TestDownloadChunks(t *testing.T) {
	mem, rep := &recordMemory{}, &recordReporter{}
	tr := NewBufferTransport(nil)
	tr.MaxChunk = 100
	b := newBridge(mem, tr)
	b.Reporter = rep
	require.NoError(t, b.Download(context.Background(), 16, 5000))

	require.Len(t, mem.ops, 3)
	var expect []byte
	for i, size := range []int{2048, 2048, 904} {
		require.Equal(t, ddr.Addr(16+i*256), mem.ops[i].addr)
		require.Len(t, mem.ops[i].data, size)
		expect = append(expect, mem.ops[i].data...)
	}
	require.Equal(t, expect, tr.Sent())
	require.Equal(t, []Summary{{Dir: ddr.DirRead, Bytes: 5000, Patches: 3}}, rep.summaries)
}

func TestRoundTripKeepsMemoryOrder(t *testing.T) {
	const staging = 4096
	ctl := sim.NewController(1<<20, staging)
	ctl.FillRate = 256
	ch := ddr.New(ctl, ddr.WithStagingCapacity(staging))

	data := payload(3 * 1024)
	tr := NewBufferTransport(data)
	tr.MaxChunk = 300
	require.NoError(t, newBridge(ch, tr).SelfTest(context.Background(), len(data)))

	// download sends memory order, which is the swapped upload stream
	sent := tr.Sent()
	require.Len(t, sent, 3*4+len(data))
	require.Equal(t, swapped(data), sent[12:])
	require.NotEqual(t, data, sent[12:])
	require.Empty(t, ctl.Violations())
}

func TestTransferIDs(t *testing.T) {
	const staging = 4096
	ch := ddr.New(sim.NewController(1<<20, staging), ddr.WithStagingCapacity(staging))
	rep := &recordReporter{}
	b := newBridge(ch, NewBufferTransport(payload(2048)))
	b.Reporter = rep
	require.NoError(t, b.SelfTest(context.Background(), 2048))

	// two upload patches and one download patch
	require.Len(t, rep.patchIDs, 3)
	require.Len(t, rep.doneIDs, 2)
	up, down := rep.doneIDs[0], rep.doneIDs[1]
	require.False(t, up.IsNil())
	require.NotEqual(t, up, down)
	require.Equal(t, []xid.ID{up, up, down}, rep.patchIDs)
}

func TestBadSize(t *testing.T) {
	b := newBridge(&recordMemory{}, NewBufferTransport(nil))
	for _, total := range []int{0, -1024, 1000, 1536} {
		require.True(t, errors.Is(b.Upload(context.Background(), total), ErrBadSize), "upload %d", total)
	}
	for _, total := range []int{0, 12} {
		require.True(t, errors.Is(b.Download(context.Background(), 0, total), ErrBadSize), "download %d", total)
	}
}

func TestBadPatchSizes(t *testing.T) {
	rep := &recordReporter{}
	for _, b := range []*Bridge{
		{},
		{Window: 2048, BurstMax: 1024},
		{Window: 12, BurstMax: 1024},
		{Window: 1024, BurstMax: 2 * ddr.MaxBurstBytes},
	} {
		b.Memory, b.Transport, b.Reporter = &recordMemory{}, NewBufferTransport(payload(4096)), rep
		require.NotPanics(t, func() {
			err := b.Upload(context.Background(), 4096)
			require.True(t, errors.Is(err, ErrBadSize), "upload window %d burst %d: %v", b.Window, b.BurstMax, err)
			err = b.Download(context.Background(), 0, 64)
			require.True(t, errors.Is(err, ErrBadSize), "download window %d burst %d: %v", b.Window, b.BurstMax, err)
		})
	}
	require.Empty(t, rep.summaries)
}

func TestUploadCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	rep := &recordReporter{}
	b := newBridge(&recordMemory{}, NewBufferTransport(payload(100)))
	b.Reporter = rep
	err := b.Upload(ctx, 1024)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "%v", err)
	require.Len(t, rep.summaries, 1)
	require.Equal(t, err, rep.summaries[0].Err)
}

type failMemory struct{ recordMemory }

func (m *failMemory) Write(ctx context.Context, addr ddr.Addr, data []byte) error {
	return &ddr.TimeoutError{Stage: ddr.StateAwaitingAck, Polls: 1}
}

func TestUploadMemoryError(t *testing.T) {
	b := newBridge(&failMemory{}, NewBufferTransport(payload(1024)))
	err := b.Upload(context.Background(), 1024)
	require.True(t, errors.Is(err, ddr.ErrTimeout), "%v", err)
}
