// Package apperr defines the failure kinds the reader surfaces to users.
//
// Components return *Error values; the HTTP layer decides how each kind is rendered
// (banner, transcript entry, status code) so the core stays free of UI concerns.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindConfiguration means a required credential or setting is missing. No network call was made.
	KindConfiguration Kind = "configuration"
	// KindExtraction covers OCR network, status and parsing failures.
	KindExtraction Kind = "extraction"
	// KindMalformedResponse is an OCR payload that is not valid JSON. It is also an extraction failure.
	KindMalformedResponse Kind = "malformed_response"
	// KindGeneration covers chat completion request and streaming failures.
	KindGeneration Kind = "generation"
	// KindInvalidInput is a rejected option or parameter value.
	KindInvalidInput Kind = "invalid_input"
)

// Error is a classified failure. Msg is safe to show to a user; Err carries the cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the user-facing text: Msg when set, otherwise the cause.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// E builds an *Error of the given kind wrapping err.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configuration reports a missing setting with a user-facing message.
func Configuration(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind. A malformed response also counts as an extraction failure.
func Is(err error, kind Kind) bool {
	k := KindOf(err)
	if k == kind {
		return k != ""
	}
	return kind == KindExtraction && k == KindMalformedResponse
}

// UserMessage extracts the user-facing text of err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
