// Package websocket carries the bridge byte stream in binary websocket
// frames.
package websocket

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/ddrlink/pkg/framework"
	"github.com/robotalks/ddrlink/pkg/link"
)

// DefaultMaxFrame is the largest payload sent in one frame.
const DefaultMaxFrame = 4096

// Transport wraps websocket.Conn as a bridge transport.
type Transport struct {
	Conn     *websocket.Conn
	MaxFrame int

	inbox link.Inbox
}

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *Transport {
	return &Transport{Conn: conn, MaxFrame: DefaultMaxFrame}
}

// Dial connects to a websocket server.
func Dial(url, origin string) (*Transport, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Receive takes bytes from frames already received.
func (t *Transport) Receive(p []byte) (int, error) {
	return t.inbox.Take(p), nil
}

// Send writes at most MaxFrame bytes of p as one binary frame.
func (t *Transport) Send(p []byte) (int, error) {
	if t.MaxFrame > 0 && len(p) > t.MaxFrame {
		p = p[:t.MaxFrame]
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := websocket.Message.Send(t.Conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Buffered returns the number of received bytes not taken yet.
func (t *Transport) Buffered() int {
	return t.inbox.Len()
}

// Run reads frames until ctx is done or the connection fails. The
// connection is closed when Run returns.
func (t *Transport) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, t.Conn, func() error {
		for {
			var frame []byte
			if err := websocket.Message.Receive(t.Conn, &frame); err != nil {
				return err
			}
			glog.V(3).Infof("websocket: received %d bytes", len(frame))
			t.inbox.Put(frame)
		}
	})
}
