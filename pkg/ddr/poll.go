package ddr

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Poller bounds the busy-wait loops on controller registers.
type Poller struct {
	// Budget is the maximum number of condition checks, 0 for unbounded.
	Budget int
	// Timeout is the wall clock limit of one wait, 0 for none.
	Timeout time.Duration
}

// DefaultPollBudget is large enough for a full burst on real hardware.
const DefaultPollBudget = 1 << 20

// Until evaluates cond until it returns true. A wait which exhausts the
// budget or the timeout yields a *TimeoutError for stage.
func (p Poller) Until(ctx context.Context, stage State, cond func() bool) error {
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = time.Now().Add(p.Timeout)
	}
	for polls := 1; ; polls++ {
		if cond() {
			return nil
		}
		if p.Budget > 0 && polls >= p.Budget {
			return &TimeoutError{Stage: stage, Polls: polls}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return &TimeoutError{Stage: stage, Polls: polls}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ddr: %s: %w", stage, err)
		}
		runtime.Gosched()
	}
}
