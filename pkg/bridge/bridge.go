// Package bridge moves bulk payloads between a byte stream transport and
// controller memory, one patch at a time.
//
// Upload receives Window bytes per patch, swaps each 4-byte group into
// memory word order and writes the patch at doubleword Window/8*i.
// Download reads BurstMax bytes per patch starting at a base address and
// sends them as-is, so a download does not undo the swap of an upload.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/golang/glog"
	"github.com/rs/xid"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

// ErrBadSize indicates a transfer size the bridge cannot split into patches.
var ErrBadSize = errors.New("bad transfer size")

const echoMask = 0x01

// Bridge runs transfers between Transport and Memory.
type Bridge struct {
	Memory    Memory
	Transport Transport
	// Reporter is optional.
	Reporter Reporter
	Window   int
	BurstMax int
	Echo     bool
}

// checkSizes applies the Config rules to a Bridge built without one.
func (b *Bridge) checkSizes() error {
	conf := Config{Window: b.Window, BurstMax: b.BurstMax}
	if err := conf.Validate(); err != nil {
		if errors.Is(err, ErrBadSize) {
			return err
		}
		return fmt.Errorf("%v: %w", err, ErrBadSize)
	}
	return nil
}

// Upload receives total bytes from the transport and stores them from
// doubleword 0. total must be a positive multiple of Window.
func (b *Bridge) Upload(ctx context.Context, total int) (err error) {
	if err := b.checkSizes(); err != nil {
		return err
	}
	if total <= 0 || total%b.Window != 0 {
		return fmt.Errorf("upload %d bytes in %d byte patches: %w", total, b.Window, ErrBadSize)
	}
	patches := total / b.Window
	id := xid.New()
	var done int
	defer func() {
		b.transferDone(ctx, Summary{Transfer: id, Dir: ddr.DirWrite, Bytes: done * b.Window, Patches: done, Err: err})
	}()

	// the handshake word comes from the previous patch, zero before the first
	buf := make([]byte, b.Window)
	for i := 0; i < patches; i++ {
		if b.Echo {
			var echo [4]byte
			for n := range echo {
				echo[n] = buf[n] ^ echoMask
			}
			if err = b.sendAll(ctx, echo[:]); err != nil {
				return fmt.Errorf("patch %d echo: %w", i, err)
			}
		}
		glog.Infof("Write patch %d: waiting for input", i)
		if err = b.receiveFull(ctx, buf); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
		ConvertEndian(buf)
		addr := ddr.Addr(i * (b.Window / ddr.DoublewordBytes))
		if err = b.Memory.Write(ctx, addr, buf); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
		done++
		b.patchDone(ctx, Patch{Transfer: id, Dir: ddr.DirWrite, Index: i, Address: addr, Bytes: len(buf), Total: total})
	}
	return nil
}

// Download reads total bytes starting at doubleword base and sends them to
// the transport in address order. total must be a positive multiple of 8.
func (b *Bridge) Download(ctx context.Context, base ddr.Addr, total int) (err error) {
	if err := b.checkSizes(); err != nil {
		return err
	}
	if total <= 0 || total%ddr.DoublewordBytes != 0 {
		return fmt.Errorf("download %d bytes: %w", total, ErrBadSize)
	}
	id := xid.New()
	var moved, done int
	defer func() {
		b.transferDone(ctx, Summary{Transfer: id, Dir: ddr.DirRead, Bytes: moved, Patches: done, Err: err})
	}()

	buf := make([]byte, b.BurstMax)
	for left, i := total, 0; left > 0; i++ {
		chunk := buf
		if left < len(chunk) {
			chunk = chunk[:left]
		}
		addr := base + ddr.Addr(i*(b.BurstMax/ddr.DoublewordBytes))
		if err = b.Memory.Read(ctx, addr, chunk); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
		glog.Infof("Read patch %d: sending %d bytes", i, len(chunk))
		if err = b.sendAll(ctx, chunk); err != nil {
			return fmt.Errorf("patch %d: %w", i, err)
		}
		left -= len(chunk)
		moved += len(chunk)
		done++
		b.patchDone(ctx, Patch{Transfer: id, Dir: ddr.DirRead, Index: i, Address: addr, Bytes: len(chunk), Total: total})
	}
	return nil
}

// SelfTest uploads total bytes and sends them back from address 0.
func (b *Bridge) SelfTest(ctx context.Context, total int) error {
	if err := b.Upload(ctx, total); err != nil {
		return err
	}
	return b.Download(ctx, 0, total)
}

func (b *Bridge) receiveFull(ctx context.Context, p []byte) error {
	for got := 0; got < len(p); {
		n, err := b.Transport.Receive(p[got:])
		if err != nil {
			return err
		}
		if n > 0 {
			got += n
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}

func (b *Bridge) sendAll(ctx context.Context, p []byte) error {
	for sent := 0; sent < len(p); {
		n, err := b.Transport.Send(p[sent:])
		if err != nil {
			return err
		}
		if n > 0 {
			sent += n
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}

func (b *Bridge) patchDone(ctx context.Context, p Patch) {
	if b.Reporter != nil {
		b.Reporter.PatchDone(ctx, p)
	}
}

func (b *Bridge) transferDone(ctx context.Context, s Summary) {
	if b.Reporter != nil {
		b.Reporter.TransferDone(ctx, s)
	}
}
