package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/robotalks/ddrlink/pkg/link"
)

// Topic suffixes under the device ID. rx carries bytes into the device and
// tx bytes out of it.
const (
	TopicRx     = "rx"
	TopicTx     = "tx"
	TopicReport = "report"
)

// DefaultMaxMessage is the largest payload published by one Send.
const DefaultMaxMessage = 1024

// DefaultPublishTimeout bounds the wait for a publish to complete.
const DefaultPublishTimeout = 5 * time.Second

// Transport is a byte stream over a pair of topics.
type Transport struct {
	Queue      *Queue
	SubTopic   string
	PubTopic   string
	MaxMessage int
	Timeout    time.Duration

	inbox link.Inbox
}

// NewTransport creates the Transport.
func NewTransport(q *Queue) *Transport {
	return &Transport{Queue: q, MaxMessage: DefaultMaxMessage, Timeout: DefaultPublishTimeout}
}

// WithTopics specifies the topics.
func (t *Transport) WithTopics(sub, pub string) *Transport {
	t.SubTopic, t.PubTopic = sub, pub
	return t
}

// ForDevice sets topics for the bridge end:
// SubTopic = device/rx
// PubTopic = device/tx
func (t *Transport) ForDevice(device string) *Transport {
	return t.WithTopics(device+"/"+TopicRx, device+"/"+TopicTx)
}

// ForHost sets topics for the peer feeding the bridge:
// SubTopic = device/tx
// PubTopic = device/rx
func (t *Transport) ForHost(device string) *Transport {
	return t.WithTopics(device+"/"+TopicTx, device+"/"+TopicRx)
}

// Receive takes bytes already received.
func (t *Transport) Receive(p []byte) (int, error) {
	return t.inbox.Take(p), nil
}

// Send publishes at most MaxMessage bytes of p and waits for completion.
func (t *Transport) Send(p []byte) (int, error) {
	if t.MaxMessage > 0 && len(p) > t.MaxMessage {
		p = p[:t.MaxMessage]
	}
	if len(p) == 0 {
		return 0, nil
	}
	token := t.Queue.PubWith(t.PubTopic, append([]byte(nil), p...), 1, false)
	if !token.WaitTimeout(t.Timeout) {
		return 0, fmt.Errorf("publish %s: timeout", t.PubTopic)
	}
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Run implements Runnable.
func (t *Transport) Run(ctx context.Context) error {
	sub := t.Queue.Sub(t.SubTopic, func(_ string, payload []byte) {
		t.inbox.Put(payload)
	})
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}
