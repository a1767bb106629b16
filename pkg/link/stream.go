package link

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"
)

// Stream carries a byte stream in data packets. It implements the
// transport expected by the bridge: Send and Receive never block and
// return 0 while there is nothing to move.
type Stream struct {
	link  *Link
	inbox Inbox
}

// NewStream creates a Stream over rw. Run must be running for anything to
// be sent or received.
func NewStream(rw io.ReadWriter) *Stream {
	s := &Stream{link: New(rw)}
	s.link.Handler = HandlePacketFunc(s.handlePacket)
	return s
}

// Link returns the underlying link.
func (s *Stream) Link() *Link {
	return s.link
}

// Run implements framework.Runnable.
func (s *Stream) Run(ctx context.Context) error {
	return s.link.Run(ctx)
}

// Send sends at most MaxPayload bytes of p in one packet.
func (s *Stream) Send(p []byte) (int, error) {
	if len(p) > MaxPayload {
		p = p[:MaxPayload]
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.link.Send(CodeData, p); err != nil {
		if errors.Is(err, ErrNotReady) {
			return 0, nil
		}
		return 0, err
	}
	return len(p), nil
}

// Receive takes bytes already received.
func (s *Stream) Receive(p []byte) (int, error) {
	return s.inbox.Take(p), nil
}

// Buffered returns the number of received bytes not yet taken.
func (s *Stream) Buffered() int {
	return s.inbox.Len()
}

func (s *Stream) handlePacket(ctx context.Context, pkt *Packet) {
	if err := pkt.Err(); err != nil {
		glog.Warningf("link: packet %d: %v", pkt.Seq, err)
		return
	}
	switch pkt.Code &^ CodeEvent {
	case CodeData:
		s.inbox.Put(pkt.Payload)
	case CodeReset:
		glog.Infof("link: peer reset, dropping %d buffered bytes", s.inbox.Drain())
	default:
		glog.Warningf("link: dropped packet %d with code 0x%02x", pkt.Seq, pkt.Code)
	}
}
