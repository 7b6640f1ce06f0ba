package rpc

import (
	"fmt"

	"github.com/google/uuid"
)

// newCorrelationID returns a fresh random 128-bit correlation token. Tokens
// are generated from a cryptographically strong source, are never reused, and
// live only for one Execute call. Generation is safe for concurrent use.
//
// A failure here means the system's entropy source is broken; callers treat
// it as an internal invariant violation, not a recoverable condition.
func newCorrelationID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("correlation id source failed: %w", err)
	}
	return id, nil
}
