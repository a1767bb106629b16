package bridge

import (
	"context"
	"sync"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

// Transport is the byte stream peer. Both calls may make partial progress,
// and 0 only means nothing could be moved yet. An error is an I/O failure.
type Transport interface {
	Receive(p []byte) (int, error)
	Send(p []byte) (int, error)
}

// Memory is the storage primitive the bridge moves patches through.
// *ddr.Channel implements it.
type Memory interface {
	Write(ctx context.Context, addr ddr.Addr, data []byte) error
	Read(ctx context.Context, addr ddr.Addr, out []byte) error
}

// BufferTransport is an in-memory Transport. Receive drains bytes queued
// with Feed and Send appends to the buffer returned by Sent.
type BufferTransport struct {
	// MaxChunk limits the bytes moved by a single call, 0 for no limit.
	MaxChunk int

	lock     sync.Mutex
	incoming []byte
	outgoing []byte
	calls    int
}

// NewBufferTransport creates a BufferTransport with rx queued for Receive.
func NewBufferTransport(rx []byte) *BufferTransport {
	return &BufferTransport{incoming: append([]byte(nil), rx...)}
}

// Feed queues bytes for Receive.
func (t *BufferTransport) Feed(p []byte) {
	t.lock.Lock()
	t.incoming = append(t.incoming, p...)
	t.lock.Unlock()
}

func (t *BufferTransport) limit(n int) int {
	if t.MaxChunk > 0 && n > t.MaxChunk {
		return t.MaxChunk
	}
	return n
}

// Receive implements Transport.
func (t *BufferTransport) Receive(p []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.calls++
	n := copy(p[:t.limit(len(p))], t.incoming)
	t.incoming = t.incoming[n:]
	return n, nil
}

// Send implements Transport.
func (t *BufferTransport) Send(p []byte) (int, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.calls++
	n := t.limit(len(p))
	t.outgoing = append(t.outgoing, p[:n]...)
	return n, nil
}

// Sent returns a copy of everything accepted by Send.
func (t *BufferTransport) Sent() []byte {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]byte(nil), t.outgoing...)
}

// Pending returns the number of queued bytes not yet received.
func (t *BufferTransport) Pending() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.incoming)
}

// Calls returns the number of Receive and Send calls.
func (t *BufferTransport) Calls() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.calls
}
