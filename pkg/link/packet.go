package link

import (
	"fmt"
	"time"
)

// Seq is a packet sequence number, valid within 1..0xef.
type Seq byte

const seqLimit = 0xf0

// RandomSeq picks a start sequence number from the clock.
func RandomSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the sequence number following s.
func (s Seq) Next() Seq {
	if n := byte(s) + 1; n > 0 && n < seqLimit {
		return Seq(n)
	}
	return 1
}

// Valid reports whether s can appear on the wire as a sequence number.
func (s Seq) Valid() bool {
	return s > 0 && s < seqLimit
}

// Packet codes. Bit 0 flags an error reply, bit 7 an unsolicited event.
const (
	CodeData  byte = 0x02
	CodeReset byte = 0x04
	CodeError byte = 0x01
	CodeEvent byte = 0x80

	codeMask = 0x8f
)

const (
	inlineLenMax = 6
	extendedLen  = 7
	// MaxPayload is the largest payload a packet can carry.
	MaxPayload = 0x7f
)

// Packet is a framed unit on the link.
type Packet struct {
	Seq     Seq
	Code    byte
	Payload []byte
}

// Err returns a *PeerError if the error bit of the code is set.
func (p *Packet) Err() error {
	if p.Code&CodeError != 0 {
		return &PeerError{Code: p.Code &^ CodeError}
	}
	return nil
}

// Encode returns the wire bytes of the packet.
func (p *Packet) Encode() ([]byte, error) {
	size := len(p.Payload)
	if size > MaxPayload {
		return nil, fmt.Errorf("%d bytes: %w", size, ErrPayloadTooLarge)
	}
	head := p.Code & codeMask
	if size <= inlineLenMax {
		out := make([]byte, 2, 2+size)
		out[0], out[1] = byte(p.Seq), head|byte(size)<<4
		return append(out, p.Payload...), nil
	}
	out := make([]byte, 3, 3+size)
	out[0], out[1], out[2] = byte(p.Seq), head|extendedLen<<4, byte(size)
	return append(out, p.Payload...), nil
}
