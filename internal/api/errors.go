package api

import (
	"strings"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/redmine"
)

// ErrorCode classifies the outcome of a typed operation
type ErrorCode int

const (
	NoError ErrorCode = iota
	ErrIncompleteData
	ErrNetwork
	ErrNotSaved
	ErrTimeEntryTooShort
	// ErrTimeout is reserved; no operation raises it yet.
	ErrTimeout
)

func (e ErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERR"
	case ErrIncompleteData:
		return "ERR_INCOMPLETE_DATA"
	case ErrNetwork:
		return "ERR_NETWORK"
	case ErrNotSaved:
		return "ERR_NOT_SAVED"
	case ErrTimeEntryTooShort:
		return "ERR_TIME_ENTRY_TOO_SHORT"
	case ErrTimeout:
		return "ERR_TIMEOUT"
	}
	return "ERR_UNKNOWN"
}

// Error adapts an error code and its messages to the error interface
type Error struct {
	Code     ErrorCode
	Messages []string
}

func (e *Error) Error() string {
	if len(e.Messages) == 0 {
		return e.Code.String()
	}
	return e.Code.String() + ": " + strings.Join(e.Messages, "; ")
}

// AsError returns nil for NoError and an *Error otherwise
func AsError(code ErrorCode, messages []string) error {
	if code == NoError {
		return nil
	}
	return &Error{Code: code, Messages: messages}
}

// Callback receives the result of a typed operation exactly once
type Callback[T any] func(result T, code ErrorCode, errs []string)

// SuccessCallback receives the result of a typed send. id is the id of the
// created or updated resource when known.
type SuccessCallback func(ok bool, id int, code ErrorCode, errs []string)

// errorList is the reply's error string followed by the entries of "errors"
func errorList(reply *redmine.Reply, doc *gabs.Container) []string {
	errs := []string{reply.ErrorString()}
	for _, e := range doc.S("errors").Children() {
		if s, ok := e.Data().(string); ok {
			errs = append(errs, s)
		}
	}
	return errs
}
