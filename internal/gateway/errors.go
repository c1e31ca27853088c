package gateway

import (
	"errors"
	"fmt"
)

// Gateway-level failures. The orchestrator translates these into the domain
// error taxonomy; they never cross the handler boundary.
var (
	// ErrUnavailable covers transport failures and timeouts. Local state must
	// be left unchanged: a timed-out call may still have succeeded remotely.
	ErrUnavailable = errors.New("processor unavailable")

	// ErrNotFound means the processor has no record of the referenced resource.
	ErrNotFound = errors.New("processor resource not found")
)

// RejectedError is a definitive processor-side rejection of a creation,
// capture or refund request.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("processor rejected request: %s", e.Reason)
}
