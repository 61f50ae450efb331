package automation

import (
	"errors"
	"fmt"
)

// ErrInvalidPhoneNumber rejects phone numbers that are not a 10-digit Indian
// mobile number starting 6-9.
var ErrInvalidPhoneNumber = errors.New("invalid phone number format")

// ErrSessionNotFound means neither the cache nor the durable store holds the
// session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionNotAuthenticated means the session has not completed OTP
// verification yet.
var ErrSessionNotAuthenticated = errors.New("session not authenticated")

// OperationError wraps a browser-driving failure inside a multi-step
// sequence, naming the operation and the step that failed. The session is
// moved to the failed state before this is returned.
type OperationError struct {
	Op   string
	Step string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed at step %q: %v", e.Op, e.Step, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
