package ddr

import (
	"errors"
	"fmt"
)

var (
	// ErrBadLength indicates a transfer length which is zero or not a
	// whole number of doublewords.
	ErrBadLength = errors.New("length must be a positive multiple of 8 bytes")
	// ErrBurstTooLarge indicates a transfer longer than the request word
	// can encode.
	ErrBurstTooLarge = errors.New("burst exceeds controller maximum")
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("timeout")
	// ErrOutOfSync is returned by every transaction after one was abandoned
	// before the controller acknowledged it, until Reset succeeds.
	ErrOutOfSync = errors.New("channel out of sync with controller")
)

// TimeoutError reports a wait on the controller which ran out of polls or
// passed its deadline.
type TimeoutError struct {
	Stage State
	Polls int
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ddr: %s: timeout after %d polls", e.Stage, e.Polls)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
