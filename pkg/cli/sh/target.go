package sh

import (
	"context"
	"fmt"

	"github.com/robotalks/ddrlink/pkg/bridge"
	"github.com/robotalks/ddrlink/pkg/ddr"
	"github.com/robotalks/ddrlink/pkg/ddr/sim"
)

// Target is a simulated controller with the channel and bridge driving it.
type Target struct {
	Controller *sim.Controller
	Channel    *ddr.Channel
	Config     *bridge.Config
}

// Status is a snapshot of the target.
type Status struct {
	State        string   `json:"state"`
	InSync       bool     `json:"in-sync"`
	WritePointer uint32   `json:"write-pointer"`
	LastWord     string   `json:"last-word"`
	Writes       int      `json:"register-writes"`
	Violations   []string `json:"violations,omitempty"`
}

// TransferResult is the outcome of a bridge operation.
type TransferResult struct {
	// Sent is everything the bridge wrote to its transport.
	Sent []byte `json:"sent"`
	// Echo is the handshake bytes within Sent.
	Echo int `json:"echo"`
}

// NewTarget creates a simulated target with storageBytes of DDR.
func NewTarget(storageBytes uint64, conf *bridge.Config) *Target {
	ctl := sim.NewController(storageBytes, ddr.DefaultStagingCapacity)
	return &Target{
		Controller: ctl,
		Channel:    ddr.New(ctl),
		Config:     conf,
	}
}

// Status reports the channel and controller state.
func (t *Target) Status() Status {
	w := t.Channel.LastWord()
	return Status{
		State:        t.Channel.State().String(),
		InSync:       t.Channel.InSync(),
		WritePointer: t.Channel.WritePointer(),
		LastWord:     fmt.Sprintf("%08x%08x", w.Hi, w.Lo),
		Writes:       t.Controller.RegisterWrites(),
		Violations:   t.Controller.Violations(),
	}
}

// Poke writes whole doublewords at addr.
func (t *Target) Poke(ctx context.Context, addr ddr.Addr, data []byte) error {
	return t.Channel.Write(ctx, addr, data)
}

// Peek reads n doublewords from addr, splitting into bursts.
func (t *Target) Peek(ctx context.Context, addr ddr.Addr, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("peek %d doublewords: %w", n, ddr.ErrBadLength)
	}
	out := make([]byte, n*ddr.DoublewordBytes)
	for off := 0; off < len(out); off += ddr.MaxBurstBytes {
		end := off + ddr.MaxBurstBytes
		if end > len(out) {
			end = len(out)
		}
		if err := t.Channel.Read(ctx, addr+ddr.Addr(off/ddr.DoublewordBytes), out[off:end]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *Target) bridge(rx []byte) (*bridge.Bridge, *bridge.BufferTransport, error) {
	tr := bridge.NewBufferTransport(rx)
	b, err := t.Config.NewBridge(t.Channel, tr)
	return b, tr, err
}

func (t *Target) echoBytes(total int) int {
	if !t.Config.Echo || t.Config.Window <= 0 {
		return 0
	}
	return total / t.Config.Window * 4
}

// Upload feeds data to the bridge, padded with zeros to whole windows.
func (t *Target) Upload(ctx context.Context, data []byte) (*TransferResult, error) {
	if w := t.Config.Window; w > 0 && len(data)%w != 0 {
		data = append(data, make([]byte, w-len(data)%w)...)
	}
	b, tr, err := t.bridge(data)
	if err != nil {
		return nil, err
	}
	if err := b.Upload(ctx, len(data)); err != nil {
		return nil, err
	}
	return &TransferResult{Sent: tr.Sent(), Echo: t.echoBytes(len(data))}, nil
}

// Download reads total bytes from base through the bridge.
func (t *Target) Download(ctx context.Context, base ddr.Addr, total int) (*TransferResult, error) {
	b, tr, err := t.bridge(nil)
	if err != nil {
		return nil, err
	}
	if err := b.Download(ctx, base, total); err != nil {
		return nil, err
	}
	return &TransferResult{Sent: tr.Sent()}, nil
}

// SelfTest uploads a counting pattern of total bytes and checks the
// download returns it in memory word order.
func (t *Target) SelfTest(ctx context.Context, total int) error {
	data := make([]byte, total)
	for i := range data {
		data[i] = byte(i)
	}
	b, tr, err := t.bridge(data)
	if err != nil {
		return err
	}
	if err := b.SelfTest(ctx, total); err != nil {
		return err
	}
	expect := append([]byte(nil), data...)
	bridge.ConvertEndian(expect)
	sent := tr.Sent()
	echo := t.echoBytes(total)
	if len(sent) != echo+total {
		return fmt.Errorf("selftest: sent %d bytes, want %d", len(sent), echo+total)
	}
	for i, v := range sent[echo:] {
		if v != expect[i] {
			return fmt.Errorf("selftest: mismatch at byte %d: %02x != %02x", i, v, expect[i])
		}
	}
	return nil
}
