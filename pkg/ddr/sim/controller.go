// Package sim provides an in-memory DDR controller behind the same register
// interface as the hardware, for tests and bench tooling.
package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/ddrlink/pkg/ddr"
)

// Controller models the DDR controller registers, its backing store and the
// staging buffer it fills for reads.
type Controller struct {
	// FillRate is the number of bytes appended to the staging buffer each
	// time software polls the write pointer. 0 delivers a burst at once.
	FillRate uint32
	// Stall makes the controller accept requests but never make progress.
	Stall bool
	// CalibrationPolls is the number of polls before calibration completes.
	CalibrationPolls int

	lock     sync.Mutex
	storage  *Storage
	ring     []byte
	wptr     uint32
	cpuRead  bool
	ack      bool
	miso     ddr.Word
	mosi     ddr.Word
	active   *ddr.Request
	cursor   ddr.Addr
	left     int
	pending  []byte
	fillAt   uint32
	polls    int
	writes   int
	problems []string
}

// NewController creates a controller with storageBytes of DDR and a staging
// buffer of stagingBytes, which must be a power of two.
func NewController(storageBytes uint64, stagingBytes uint32) *Controller {
	if stagingBytes == 0 || stagingBytes&(stagingBytes-1) != 0 {
		panic("sim: staging size must be a power of two")
	}
	return &Controller{
		storage: NewStorage(storageBytes),
		ring:    make([]byte, stagingBytes),
	}
}

// Read32 implements ddr.Registers.
func (c *Controller) Read32(off uint32) uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch off {
	case ddr.RegMISOValid:
		if c.ack {
			return 1
		}
		return 0
	case ddr.RegMISOHi:
		return c.miso.Hi
	case ddr.RegMISOLo:
		return c.miso.Lo
	case ddr.RegDMemWritePtr:
		c.fill()
		return c.wptr
	case ddr.RegInitCalibComplete:
		if c.polls++; c.polls > c.CalibrationPolls {
			return 1
		}
		return 0
	}
	c.violation("read of unknown register 0x%02x", off)
	return 0
}

// Write32 implements ddr.Registers.
func (c *Controller) Write32(off uint32, val uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.writes++
	switch off {
	case ddr.RegMOSIHi:
		c.mosi.Hi = val
	case ddr.RegMOSILo:
		c.mosi.Lo = val
	case ddr.RegMOSIValid:
		if val&1 != 0 {
			c.strobe()
		}
	case ddr.RegMISOValid:
		if val == 0 {
			c.ack = false
		}
	case ddr.RegCPURead:
		c.cpuRead = val != 0
	default:
		c.violation("write of unknown register 0x%02x", off)
	}
}

// ReadWindow implements ddr.Registers.
func (c *Controller) ReadWindow(off uint32, p []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.cpuRead {
		c.violation("staging buffer read while CPU access inhibited")
	}
	if int(off)+len(p) > len(c.ring) {
		c.violation("staging buffer read [0x%x, +%d) past end", off, len(p))
	}
	if int(off) < len(c.ring) {
		copy(p, c.ring[off:])
	}
}

func (c *Controller) strobe() {
	if c.active == nil {
		req, ok := ddr.DecodeRequest(c.mosi.Hi, c.mosi.Lo)
		if !ok {
			c.violation("strobe without request, hi=0x%08x", c.mosi.Hi)
			return
		}
		c.start(req)
		return
	}
	if c.active.Dir != ddr.DirWrite {
		c.violation("data strobe during read")
		return
	}
	if c.Stall {
		return
	}
	var dw [ddr.DoublewordBytes]byte
	c.mosi.Put(dw[:])
	if err := c.storage.WriteAt(uint64(c.cursor)*ddr.DoublewordBytes, dw[:]); err != nil {
		c.violation("%v", err)
	}
	c.cursor++
	if c.left--; c.left == 0 {
		c.active, c.ack = nil, true
	}
}

func (c *Controller) start(req ddr.Request) {
	c.active, c.cursor, c.left = &req, req.Addr, req.Doublewords
	if req.Dir == ddr.DirWrite {
		return
	}
	c.pending = make([]byte, req.Doublewords*ddr.DoublewordBytes)
	if err := c.storage.ReadAt(uint64(req.Addr)*ddr.DoublewordBytes, c.pending); err != nil {
		c.violation("%v", err)
	}
	capacity := uint32(len(c.ring))
	c.fillAt = uint32(req.Addr) * ddr.DoublewordBytes & (capacity - 1)
	c.miso = ddr.WordFrom(c.pending)
}

func (c *Controller) fill() {
	if c.active == nil || c.active.Dir != ddr.DirRead || c.Stall {
		return
	}
	if c.cpuRead {
		c.violation("staging buffer filled while CPU reads it")
	}
	n := uint32(len(c.pending))
	if c.FillRate > 0 && c.FillRate < n {
		n = c.FillRate
	}
	capacity := uint32(len(c.ring))
	for i := uint32(0); i < n; i++ {
		c.ring[(c.fillAt+i)&(capacity-1)] = c.pending[i]
	}
	c.fillAt = (c.fillAt + n) & (capacity - 1)
	c.pending = c.pending[n:]
	c.wptr = (c.wptr + n) & (2*capacity - 1)
	if len(c.pending) == 0 {
		c.active, c.ack = nil, true
	}
}

func (c *Controller) violation(format string, args ...interface{}) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// Violations returns the protocol violations observed so far.
func (c *Controller) Violations() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.problems...)
}

// RegisterWrites returns the number of register writes so far.
func (c *Controller) RegisterWrites() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.writes
}

// SetWritePointer moves the staging write pointer, phase bit included.
func (c *Controller) SetWritePointer(ptr uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.wptr = ptr & (2*uint32(len(c.ring)) - 1)
}

// Peek returns the doubleword at addr.
func (c *Controller) Peek(addr ddr.Addr) (ddr.Word, error) {
	var dw [ddr.DoublewordBytes]byte
	if err := c.Load(addr, dw[:]); err != nil {
		return ddr.Word{}, err
	}
	return ddr.WordFrom(dw[:]), nil
}

// Poke stores the doubleword at addr.
func (c *Controller) Poke(addr ddr.Addr, w ddr.Word) error {
	var dw [ddr.DoublewordBytes]byte
	w.Put(dw[:])
	return c.Store(addr, dw[:])
}

// Load copies storage starting at addr into p, bypassing the registers.
func (c *Controller) Load(addr ddr.Addr, p []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.storage.ReadAt(uint64(addr)*ddr.DoublewordBytes, p)
}

// Store copies p into storage starting at addr, bypassing the registers.
func (c *Controller) Store(addr ddr.Addr, p []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.storage.WriteAt(uint64(addr)*ddr.DoublewordBytes, p)
}
