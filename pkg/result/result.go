// Package result holds the tagged error type and the uniform response
// envelope returned by every public operation of the tutor core.
package result

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable code of a failure.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindLookupFailed Kind = "LOOKUP_FAILED"
	KindUnknown      Kind = "UNKNOWN_ERROR"
)

const genericMessage = "An unexpected error occurred"

// Error is a failure with a caller-facing message and an optional cause that
// is kept for operators only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg, nil) }
func Forbidden(msg string) *Error    { return newError(KindForbidden, msg, nil) }
func NotFound(msg string) *Error     { return newError(KindNotFound, msg, nil) }
func Validation(msg string) *Error   { return newError(KindValidation, msg, nil) }
func RateLimited(msg string) *Error  { return newError(KindRateLimited, msg, nil) }

// ValidationCause reports a store-level write failure. The store message is
// appended to msg because it is actionable for the caller.
func ValidationCause(msg string, cause error) *Error {
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return newError(KindValidation, msg, cause)
}

// LookupFailed hides cause behind msg.
func LookupFailed(msg string, cause error) *Error {
	return newError(KindLookupFailed, msg, cause)
}

// Unknown hides cause behind a generic message.
func Unknown(cause error) *Error {
	return newError(KindUnknown, genericMessage, cause)
}

// As extracts the tagged error from err. Untagged errors are reported as
// KindUnknown.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return Unknown(err)
}

// KindOf returns the failure kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// Envelope is the uniform response shape:
// {success: true, data} or {success: false, error, code}.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Ok wraps a payload. A nil payload yields a bare acknowledgment.
func Ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail renders err into a failure envelope.
func Fail(err error) Envelope {
	tagged := As(err)
	if tagged == nil {
		tagged = Unknown(errors.New("nil error"))
	}
	return Envelope{Success: false, Error: tagged.Message, Code: string(tagged.Kind)}
}

// From builds the envelope for the (data, err) pair returned by an operation.
func From(data any, err error) Envelope {
	if err != nil {
		return Fail(err)
	}
	return Ok(data)
}
