package core

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the transport layer can map it to an
// HTTP status without inspecting message text.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindGatewayUnavailable
	KindGatewayError
)

// Error is the domain error type. UpstreamStatus is only set for
// KindGatewayError, where the LLM gateway's own status is passed through.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// GatewayUnavailable wraps a transport-level failure: no response was
// received from the LLM gateway (connection refused, timeout).
func GatewayUnavailable(err error) *Error {
	return &Error{Kind: KindGatewayUnavailable, Message: "llm gateway unavailable", Err: err}
}

// GatewayFailure wraps an error response the gateway did send, preserving
// its status code for passthrough.
func GatewayFailure(status int, message string) *Error {
	return &Error{Kind: KindGatewayError, Message: message, UpstreamStatus: status}
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}
