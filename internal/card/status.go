package card

import (
	"encoding/json"
	"fmt"
)

// StatusKind is the state of a form's status line.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusError
	StatusSuccess
)

// Class returns the marker the presentation layer styles the message with.
func (k StatusKind) Class() string {
	switch k {
	case StatusError:
		return "error"
	case StatusSuccess:
		return "success"
	default:
		return "hidden"
	}
}

// Status is the outcome of the last submission of a form. The zero value
// is idle with no message.
type Status struct {
	Kind    StatusKind
	Message string
}

// Idle returns the hidden status.
func Idle() Status { return Status{} }

// Failed returns an error status carrying msg.
func Failed(msg string) Status { return Status{Kind: StatusError, Message: msg} }

// Succeeded returns a success status carrying msg.
func Succeeded(msg string) Status { return Status{Kind: StatusSuccess, Message: msg} }

// Class returns the status class: hidden, error or success.
func (s Status) Class() string { return s.Kind.Class() }

type statusJSON struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// MarshalJSON encodes the status as its class and message.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{Class: s.Class(), Message: s.Message})
}

// UnmarshalJSON decodes a status written by MarshalJSON.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Class {
	case "", "hidden":
		*s = Idle()
	case "error":
		*s = Failed(raw.Message)
	case "success":
		*s = Succeeded(raw.Message)
	default:
		return fmt.Errorf("card: unknown status class %q", raw.Class)
	}
	return nil
}
