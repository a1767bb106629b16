package ddr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// State is the progress of the transaction in flight.
type State int32

// Transaction states.
const (
	StateIdle State = iota
	StateRequestIssued
	StateDataStreaming
	StateAwaitingArrival
	StateAwaitingAck
	StateAckObserved
	StateCalibrating
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateRequestIssued:   "request issued",
	StateDataStreaming:   "data streaming",
	StateAwaitingArrival: "awaiting arrival",
	StateAwaitingAck:     "awaiting ack",
	StateAckObserved:     "ack observed",
	StateCalibrating:     "calibrating",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// DefaultStagingCapacity is the size of the staging buffer in bytes.
const DefaultStagingCapacity = 16 << 10

// Channel issues transactions against the controller, one at a time.
type Channel struct {
	regs     Registers
	capacity uint32
	poller   Poller

	lock      sync.Mutex
	state     int32
	lastWord  Word
	wptr      uint32
	abandoned *abandoned
}

// abandoned is a transaction given up on while the controller still owned
// it. start is the staging write pointer sampled before a read was issued.
type abandoned struct {
	req   Request
	start uint32
	err   error
}

// Option configures a Channel.
type Option func(*Channel)

// WithStagingCapacity sets the staging buffer size, which must be a power
// of two not smaller than MaxBurstBytes.
func WithStagingCapacity(n uint32) Option {
	return func(c *Channel) { c.capacity = n }
}

// WithPollBudget limits each wait to n register polls, 0 for unbounded.
func WithPollBudget(n int) Option {
	return func(c *Channel) { c.poller.Budget = n }
}

// WithPollTimeout limits each wait to d, 0 for no deadline.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Channel) { c.poller.Timeout = d }
}

// New creates a Channel over the registers.
func New(regs Registers, opts ...Option) *Channel {
	c := &Channel{
		regs:     regs,
		capacity: DefaultStagingCapacity,
		poller:   Poller{Budget: DefaultPollBudget},
	}
	for _, opt := range opts {
		opt(c)
	}
	if !isPowerOfTwo(c.capacity) || c.capacity < MaxBurstBytes {
		panic("ddr: staging capacity must be a power of two >= MaxBurstBytes")
	}
	return c
}

// StagingCapacity returns the staging buffer size in bytes.
func (c *Channel) StagingCapacity() uint32 {
	return c.capacity
}

// State returns the state of the transaction in flight.
func (c *Channel) State() State {
	return State(atomic.LoadInt32(&c.state))
}

// LastWord returns the doubleword presented on the read data registers by
// the last completed read.
func (c *Channel) LastWord() Word {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastWord
}

// WritePointer returns the staging buffer write pointer observed when the
// last read completed.
func (c *Channel) WritePointer() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.wptr
}

func (c *Channel) setState(s State) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Calibrate waits until the controller reports calibration complete.
func (c *Channel) Calibrate(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.setState(StateCalibrating)
	defer c.setState(StateIdle)
	return c.poller.Until(ctx, StateCalibrating, func() bool {
		return c.regs.Read32(RegInitCalibComplete) != 0
	})
}

// Write stores data at the doubleword address addr. len(data) must be a
// positive multiple of 8 not exceeding MaxBurstBytes.
func (c *Channel) Write(ctx context.Context, addr Addr, data []byte) (err error) {
	n, err := CheckLength(len(data))
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.checkSync(); err != nil {
		return err
	}
	defer c.setState(StateIdle)

	req := Request{Dir: DirWrite, Doublewords: n, Addr: addr}
	c.issue(req)
	defer func() {
		if err != nil {
			c.abandon(req, 0, err)
		}
	}()

	// every doubleword needs its own strobe, the controller stalls otherwise
	c.setState(StateDataStreaming)
	for off := 0; off < len(data); off += DoublewordBytes {
		w := WordFrom(data[off:])
		c.regs.Write32(RegMOSIHi, w.Hi)
		c.regs.Write32(RegMOSILo, w.Lo)
		c.regs.Write32(RegMOSIValid, strobe)
	}

	if err := c.awaitAck(ctx); err != nil {
		return err
	}
	c.regs.Write32(RegMISOValid, 0)
	glog.V(2).Infof("ddr: write %d doublewords at 0x%x", n, addr)
	return nil
}

// Read loads len(out) bytes from the doubleword address addr through the
// staging buffer. len(out) must be a positive multiple of 8 not exceeding
// MaxBurstBytes. No byte order conversion happens here.
func (c *Channel) Read(ctx context.Context, addr Addr, out []byte) (err error) {
	n, err := CheckLength(len(out))
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.checkSync(); err != nil {
		return err
	}
	defer c.setState(StateIdle)

	start := c.regs.Read32(RegDMemWritePtr)
	c.regs.Write32(RegCPURead, 0)
	req := Request{Dir: DirRead, Doublewords: n, Addr: addr}
	c.issue(req)
	defer func() {
		if err != nil {
			c.abandon(req, start, err)
		}
	}()

	c.setState(StateAwaitingArrival)
	want, cur := uint32(len(out)), start
	err = c.poller.Until(ctx, StateAwaitingArrival, func() bool {
		cur = c.regs.Read32(RegDMemWritePtr)
		return BytesAvailable(start, cur, c.capacity) >= want
	})
	if err != nil {
		return err
	}

	if err := c.awaitAck(ctx); err != nil {
		return err
	}
	c.lastWord = Word{Hi: c.regs.Read32(RegMISOHi), Lo: c.regs.Read32(RegMISOLo)}
	c.regs.Write32(RegMISOValid, 0)
	c.wptr = cur

	c.regs.Write32(RegCPURead, 1)
	copyRing(c.regs, c.capacity, uint32(addr)*DoublewordBytes, out)
	glog.V(2).Infof("ddr: read %d doublewords at 0x%x, wptr 0x%x", n, addr, cur)
	return nil
}

func (c *Channel) issue(req Request) {
	hi, lo := req.Encode()
	c.regs.Write32(RegMOSIHi, hi)
	c.regs.Write32(RegMOSILo, lo)
	c.regs.Write32(RegMOSIValid, strobe)
	c.setState(StateRequestIssued)
}

func (c *Channel) awaitAck(ctx context.Context) error {
	c.setState(StateAwaitingAck)
	err := c.poller.Until(ctx, StateAwaitingAck, func() bool {
		return c.regs.Read32(RegMISOValid) != 0
	})
	if err == nil {
		c.setState(StateAckObserved)
	}
	return err
}

// abandon records a transaction left with the controller. The acknowledge
// is not cleared here: the controller may still raise it, and Reset waits
// for exactly that before touching the handshake again.
func (c *Channel) abandon(req Request, start uint32, err error) {
	c.abandoned = &abandoned{req: req, start: start, err: err}
	glog.Warningf("ddr: %s of %d doublewords at 0x%x abandoned: %v", req.Dir, req.Doublewords, req.Addr, err)
}

func (c *Channel) checkSync() error {
	if a := c.abandoned; a != nil {
		return fmt.Errorf("ddr: %s at 0x%x abandoned (%v): %w", a.req.Dir, a.req.Addr, a.err, ErrOutOfSync)
	}
	return nil
}

// InSync reports whether no abandoned transaction is pending.
func (c *Channel) InSync() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.abandoned == nil
}

// Reset waits for a transaction abandoned by a failed Read or Write to
// finish on the controller, then restores the handshake so new
// transactions can be issued. It does nothing when the channel is in sync.
// On error the channel stays out of sync and Reset may be retried.
func (c *Channel) Reset(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	a := c.abandoned
	if a == nil {
		return nil
	}
	defer c.setState(StateIdle)

	if a.req.Dir == DirRead {
		// the controller keeps filling the staging buffer from where the
		// abandoned read started
		c.setState(StateAwaitingArrival)
		want := uint32(a.req.Doublewords * DoublewordBytes)
		err := c.poller.Until(ctx, StateAwaitingArrival, func() bool {
			return BytesAvailable(a.start, c.regs.Read32(RegDMemWritePtr), c.capacity) >= want
		})
		if err != nil {
			return fmt.Errorf("ddr: reset: %w", err)
		}
	}
	if err := c.awaitAck(ctx); err != nil {
		return fmt.Errorf("ddr: reset: %w", err)
	}
	c.regs.Write32(RegMISOValid, 0)
	if a.req.Dir == DirRead {
		c.regs.Write32(RegCPURead, 1)
	}
	c.abandoned = nil
	glog.Infof("ddr: %s at 0x%x drained, channel in sync", a.req.Dir, a.req.Addr)
	return nil
}
