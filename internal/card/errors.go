package card

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the card does not exist or has expired.
	ErrNotFound = errors.New("card not found")
	// ErrSubmissionInFlight indicates the form is already being submitted.
	ErrSubmissionInFlight = errors.New("submission already in progress")
)

// MsgUnexpectedFailure replaces failures that carry no usable message.
const MsgUnexpectedFailure = "An unexpected error occurred. Please try again."

// RemoteFailure is the rejection returned by a backend capability.
// Message is shown to the user as is.
type RemoteFailure struct {
	Code    string
	Message string
	Err     error
}

func (f *RemoteFailure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	if f.Err != nil {
		return f.Err.Error()
	}
	return "remote failure"
}

func (f *RemoteFailure) Unwrap() error {
	return f.Err
}

// Failure builds a RemoteFailure with a user facing message.
func Failure(code, message string, err error) *RemoteFailure {
	return &RemoteFailure{Code: code, Message: message, Err: err}
}

// FailureMessage extracts the user facing message from a capability error.
// The second result is false when the error was malformed and the generic
// message was substituted.
func FailureMessage(err error) (string, bool) {
	var failure *RemoteFailure
	if errors.As(err, &failure) && strings.TrimSpace(failure.Message) != "" {
		return failure.Message, true
	}
	return MsgUnexpectedFailure, false
}
