package chat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated means no usable identity was presented.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrUnauthorized means the identity maps to a removed member.
	ErrUnauthorized = errors.New("member has been removed")
	// ErrForbidden means the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the target record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStore wraps failures of the backing data service.
	ErrStore = errors.New("store unavailable")
	// ErrEmptyMessage rejects a send whose content is blank once trimmed.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight rejects a send while the session's previous send is pending.
	ErrSendInFlight = errors.New("a send is already in progress")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoCandidateAvailable means every assistant model failed.
	ErrNoCandidateAvailable = errors.New("no assistant model produced a reply")
	// ErrAssistantUnconfigured means no generative backend is set up.
	ErrAssistantUnconfigured = errors.New("assistant backend not configured")
)

// SendError reports a failed Send. Draft holds the caller's original input
// so it can be restored into the compose box.
type SendError struct {
	Reason error
	Draft  string
	Err    error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send: %v: %v", e.Reason, e.Err)
	}
	return "send: " + e.Reason.Error()
}

func (e *SendError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}

// AssistantError is returned when the fallback chain is exhausted.
type AssistantError struct {
	Attempted []string
	Last      error
}

func (e *AssistantError) Error() string {
	msg := "assistant: no candidate available"
	if len(e.Attempted) > 0 {
		msg += " (tried " + strings.Join(e.Attempted, ", ") + ")"
	}
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *AssistantError) Unwrap() []error {
	if e.Last != nil {
		return []error{ErrNoCandidateAvailable, e.Last}
	}
	return []error{ErrNoCandidateAvailable}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
