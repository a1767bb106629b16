package link

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// PacketHandler is called for every received packet.
type PacketHandler interface {
	HandlePacket(context.Context, *Packet)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, *Packet)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, pkt *Packet) {
	f(ctx, pkt)
}

// StateNotifier is called when the link state changes.
type StateNotifier interface {
	StateChanged(context.Context, State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state State) {
	f(ctx, state)
}

// DefaultResync is the time allowed for a sync or a packet to complete.
const DefaultResync = 100 * time.Millisecond

// Link sends and receives packets over a byte stream.
type Link struct {
	ReadWriter io.ReadWriter
	Handler    PacketHandler
	Notifier   StateNotifier
	// Resync restarts synchronisation when a sync or a packet stalls.
	Resync time.Duration

	lock    sync.Mutex
	seq     Seq
	state   State
	decoder Decoder
	timer   <-chan time.Time
}

// New creates a Link over rw.
func New(rw io.ReadWriter) *Link {
	return &Link{
		ReadWriter: rw,
		Resync:     DefaultResync,
		seq:        RandomSeq(),
	}
}

// State returns the synchronisation state.
func (l *Link) State() State {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.state
}

// Send sends a packet with the next local sequence number.
func (l *Link) Send(code byte, payload []byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.state.Ready() {
		return ErrNotReady
	}
	pkt := &Packet{Seq: l.seq, Code: code, Payload: payload}
	b, err := pkt.Encode()
	if err != nil {
		return err
	}
	if _, err := l.ReadWriter.Write(b); err != nil {
		return err
	}
	l.seq = l.seq.Next()
	return nil
}

// Run reads and decodes the stream until ctx is done or the stream fails.
func (l *Link) Run(ctx context.Context) error {
	if err := l.apply(ctx, l.decoder.Reset()); err != nil {
		return err
	}

	chunkCh, errCh := make(chan []byte, 16), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(readCtx, chunkCh, errCh)

	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				if err := l.apply(ctx, l.decoder.Feed(b)); err != nil {
					return err
				}
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-l.timer:
			glog.V(3).Info("link: resync timer expired")
			if err := l.apply(ctx, l.decoder.Expire()); err != nil {
				return err
			}
		}
	}
}

func (l *Link) readLoop(ctx context.Context, chunkCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 256)
	for {
		n, err := l.ReadWriter.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (l *Link) apply(ctx context.Context, s Step) (err error) {
	var notifier StateNotifier
	l.lock.Lock()
	if l.state != s.State {
		glog.V(2).Infof("link: %s -> %s", l.state, s.State)
		l.state = s.State
		notifier = l.Notifier
	}
	if s.Reply != 0 {
		_, err = l.ReadWriter.Write([]byte{s.Reply, byte(l.seq)})
	}
	l.lock.Unlock()
	if err != nil {
		return
	}

	switch s.timer() {
	case timerRestart:
		l.timer = time.After(l.Resync)
	case timerStop:
		l.timer = nil
	}

	if notifier != nil {
		notifier.StateChanged(ctx, s.State)
	}
	if s.Packet != nil && l.Handler != nil {
		l.Handler.HandlePacket(ctx, s.Packet)
	}
	return
}
