package model

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel matched by every ProtocolError.
// Use errors.Is(err, ErrProtocol) to detect a malformed remote payload.
var ErrProtocol = errors.New("protocol error")

// ProtocolError reports a response from the surveyed node that lacks a field
// the crawl depends on. It aborts the run.
type ProtocolError struct {
	// Endpoint is the path of the request whose response was rejected.
	Endpoint string

	// Reason describes what is missing.
	Reason string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %s: %s", e.Endpoint, e.Reason)
}

// Is makes errors.Is(err, ErrProtocol) succeed for any ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
