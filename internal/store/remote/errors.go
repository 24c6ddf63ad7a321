package remote

import (
	"errors"
	"fmt"
)

// Op names one of the four store operations.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var (
	// ErrUnexpectedStatus is wrapped by RequestFailed for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInvalidResponse is wrapped when a success body does not look like a todo.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrEmptyPatch is returned by Update when there is nothing to send.
	ErrEmptyPatch = errors.New("patch has no completed field")
	// ErrInvalidID is wrapped when an id cannot name a single todo.
	ErrInvalidID = errors.New("invalid todo id")
)

// RequestFailed reports a failed call to the remote store.
// StatusCode is 0 when the request never got a response.
type RequestFailed struct {
	Op         Op
	StatusCode int
	Err        error
}

func (e *RequestFailed) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s todo: %v (%d)", e.Op, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s todo: %v", e.Op, e.Err)
}

func (e *RequestFailed) Unwrap() error { return e.Err }

// FailedOp returns the operation of a RequestFailed anywhere in err's chain.
func FailedOp(err error) (Op, bool) {
	var rf *RequestFailed
	if errors.As(err, &rf) {
		return rf.Op, true
	}
	return "", false
}
