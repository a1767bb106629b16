// Package serial opens a tty as the byte stream under a link.
package serial

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/term"

	"github.com/robotalks/ddrlink/pkg/link"
)

// DefaultBaud is the line rate used when none is configured.
const DefaultBaud = 115200

// Port is an opened serial device.
type Port struct {
	*term.Term
	Device string
}

// Open opens device in raw mode at baud.
func Open(device string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	glog.V(1).Infof("serial: %s opened at %d baud", device, baud)
	return &Port{Term: t, Device: device}, nil
}

// Close restores the terminal settings and closes the device.
func (p *Port) Close() error {
	if err := p.Term.Restore(); err != nil {
		glog.Warningf("serial: %s restore: %v", p.Device, err)
	}
	return p.Term.Close()
}

// OpenStream opens device and wraps it in a link.Stream.
func OpenStream(device string, baud int) (*link.Stream, *Port, error) {
	p, err := Open(device, baud)
	if err != nil {
		return nil, nil, err
	}
	return link.NewStream(p), p, nil
}
