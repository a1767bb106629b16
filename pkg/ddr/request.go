package ddr

import "fmt"

// Addr is a doubleword address in the controller's address space.
type Addr uint32

// Direction of a transaction.
type Direction int

// Directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Size constants of the controller.
const (
	DoublewordBytes     = 8
	MaxBurstDoublewords = 1 << 8
	MaxBurstBytes       = MaxBurstDoublewords * DoublewordBytes
)

// request_hi layout: {dir, enable, len-1[7:0], 22'b0}
const (
	reqDirBit    = 31
	reqEnableBit = 30
	reqLenShift  = 22
	reqLenMask   = 0xff
)

// Request describes a single transaction.
type Request struct {
	Dir         Direction
	Doublewords int
	Addr        Addr
}

// Encode returns the values for RegMOSIHi and RegMOSILo.
// Doublewords must be within 1..MaxBurstDoublewords.
func (r Request) Encode() (hi, lo uint32) {
	hi = 1<<reqEnableBit | uint32(r.Doublewords-1)&reqLenMask<<reqLenShift
	if r.Dir == DirWrite {
		hi |= 1 << reqDirBit
	}
	return hi, uint32(r.Addr)
}

// DecodeRequest parses a request word pair. ok is false if the enable bit
// is not set.
func DecodeRequest(hi, lo uint32) (r Request, ok bool) {
	if hi&(1<<reqEnableBit) == 0 {
		return r, false
	}
	r.Dir = DirRead
	if hi&(1<<reqDirBit) != 0 {
		r.Dir = DirWrite
	}
	r.Doublewords = int(hi>>reqLenShift&reqLenMask) + 1
	r.Addr = Addr(lo)
	return r, true
}

// CheckLength validates a transfer length in bytes and returns it in
// doublewords.
func CheckLength(n int) (int, error) {
	if n <= 0 || n%DoublewordBytes != 0 {
		return 0, fmt.Errorf("ddr: %d bytes: %w", n, ErrBadLength)
	}
	if n > MaxBurstBytes {
		return 0, fmt.Errorf("ddr: %d bytes: %w", n, ErrBurstTooLarge)
	}
	return n / DoublewordBytes, nil
}
