package chathub

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a lifecycle operation is not legal from the
	// session's current status.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrInvalidEndStatus is returned when EndSession is asked for a non-terminal status.
	ErrInvalidEndStatus = errors.New("end status must be ended or abandoned")
	// ErrSendRejected is returned when the message function answered without success.
	ErrSendRejected = errors.New("message was rejected")
	// ErrNotAssigned is returned when an attendant acts on an active session owned by
	// another attendant.
	ErrNotAssigned = errors.New("session is assigned to another attendant")
	// ErrEmptyResponse is returned when a function call returned neither a result nor an error.
	ErrEmptyResponse = errors.New("empty function response")
)

// IntakeError wraps a failed CreateSession.
type IntakeError struct {
	Err error
}

func (e *IntakeError) Error() string { return fmt.Sprintf("create chat session: %v", e.Err) }
func (e *IntakeError) Unwrap() error { return e.Err }

// AcceptError wraps a failed AcceptSession.
type AcceptError struct {
	SessionID string
	Err       error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accept session %s: %v", e.SessionID, e.Err)
}
func (e *AcceptError) Unwrap() error { return e.Err }

// EndError wraps a failed EndSession.
type EndError struct {
	SessionID string
	Err       error
}

func (e *EndError) Error() string {
	return fmt.Sprintf("end session %s: %v", e.SessionID, e.Err)
}
func (e *EndError) Unwrap() error { return e.Err }

// SendError wraps a failed SendMessage. Reason carries the function's rejection text.
type SendError struct {
	SessionID string
	Reason    string
	Err       error
}

func (e *SendError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("send message to session %s: %v: %s", e.SessionID, e.Err, e.Reason)
	}
	return fmt.Sprintf("send message to session %s: %v", e.SessionID, e.Err)
}
func (e *SendError) Unwrap() error { return e.Err }
