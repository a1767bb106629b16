package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
	"github.com/robotalks/ddrlink/pkg/ddr/sim"
)

// echoServer echoes every frame back and records frame sizes.
type echoServer struct {
	lock   sync.Mutex
	frames []int
}

func (s *echoServer) serve(conn *websocket.Conn) {
	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			return
		}
		s.lock.Lock()
		s.frames = append(s.frames, len(frame))
		s.lock.Unlock()
		if err := websocket.Message.Send(conn, frame); err != nil {
			return
		}
	}
}

func (s *echoServer) sizes() []int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]int(nil), s.frames...)
}

func dial(t *testing.T, h websocket.Handler) (*Transport, func()) {
	srv := httptest.NewServer(h)
	tr, err := Dial("ws"+strings.TrimPrefix(srv.URL, "http"), srv.URL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	return tr, func() {
		cancel()
		require.True(t, errors.Is(<-done, context.Canceled))
		srv.Close()
	}
}

func waitBuffered(t *testing.T, tr *Transport, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for tr.Buffered() < n {
		require.True(t, time.Now().Before(deadline), "buffered %d of %d", tr.Buffered(), n)
		time.Sleep(time.Millisecond)
	}
}

func TestTransportFrames(t *testing.T) {
	s := &echoServer{}
	tr, stop := dial(t, s.serve)
	defer stop()
	tr.MaxFrame = 100

	data := make([]byte, 250)
	for i := range data {
		data[i] = byte(i)
	}
	for sent := 0; sent < len(data); {
		n, err := tr.Send(data[sent:])
		require.NoError(t, err)
		sent += n
	}
	n, err := tr.Send(nil)
	require.NoError(t, err)
	require.Zero(t, n)

	waitBuffered(t, tr, len(data))
	require.Equal(t, []int{100, 100, 50}, s.sizes())
	out := make([]byte, 300)
	n, err = tr.Receive(out)
	require.NoError(t, err)
	require.Equal(t, data, out[:n])
	n, err = tr.Receive(out)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTransportCarriesUpload(t *testing.T) {
	const staging = 4096
	ch := ddr.New(sim.NewController(1<<20, staging), ddr.WithStagingCapacity(staging))
	served := make(chan error, 1)
	device := func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		tr := New(conn)
		closed := make(chan struct{})
		go func() {
			tr.Run(ctx)
			close(closed)
		}()
		conf := bridge.NewConfig()
		conf.Echo = false
		b, err := conf.NewBridge(ch, tr)
		if err == nil {
			err = b.SelfTest(ctx, 2048)
		}
		served <- err
		// the peer closes the connection after reading the download
		<-closed
	}
	host, stop := dial(t, device)
	defer stop()

	data := make([]byte, 2048)
	for i := range data {
		data[i] = byte(i * 3)
	}
	for sent := 0; sent < len(data); {
		n, err := host.Send(data[sent:])
		require.NoError(t, err)
		sent += n
	}
	require.NoError(t, <-served)
	waitBuffered(t, host, len(data))
	back := make([]byte, len(data))
	n, err := host.Receive(back)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	expect := append([]byte(nil), data...)
	bridge.ConvertEndian(expect)
	require.Equal(t, expect, back)
}
