package ddr

import "encoding/binary"

// Registers is the register surface of the memory controller.
// Offsets are the Reg* constants below.
type Registers interface {
	Read32(off uint32) uint32
	Write32(off uint32, val uint32)
	// ReadWindow copies len(p) bytes out of the staging buffer starting at
	// byte offset off. Callers never cross the end of the buffer.
	ReadWindow(off uint32, p []byte)
}

// register offsets

const (
	RegMOSIHi            uint32 = 0x00 // request word / write data, upper half (W)
	RegMOSILo            uint32 = 0x04 // request address / write data, lower half (W)
	RegMOSIValid         uint32 = 0x08 // request and data valid strobe (W)
	RegMISOHi            uint32 = 0x0c // first doubleword of a read, upper half (R)
	RegMISOLo            uint32 = 0x10 // first doubleword of a read, lower half (R)
	RegMISOValid         uint32 = 0x14 // ack flag (R), write 0 to clear (W)
	RegDMemWritePtr      uint32 = 0x18 // staging buffer write pointer incl. phase bit (R)
	RegCPURead           uint32 = 0x1c // 1 while software reads the staging buffer (W)
	RegInitCalibComplete uint32 = 0x20 // non-zero once DDR calibration finished (R)
)

const strobe uint32 = 0x01

var le = binary.LittleEndian

// Word is a doubleword as exposed by the 32-bit data registers.
type Word struct {
	Hi uint32
	Lo uint32
}

// WordFrom splits the first 8 bytes of p, in memory order, into a Word.
func WordFrom(p []byte) Word {
	return Word{Hi: le.Uint32(p[4:8]), Lo: le.Uint32(p[0:4])}
}

// Put stores w into the first 8 bytes of p in memory order.
func (w Word) Put(p []byte) {
	le.PutUint32(p[0:4], w.Lo)
	le.PutUint32(p[4:8], w.Hi)
}
