package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the link is not synchronised with the peer.
	ErrNotReady = errors.New("link not ready")
	// ErrPayloadTooLarge indicates a payload longer than MaxPayload.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// PeerError is reported by the peer with an error code bit set.
type PeerError struct {
	Code byte
}

// Error implements error.
func (e *PeerError) Error() string {
	return fmt.Sprintf("peer error 0x%02x", e.Code)
}
