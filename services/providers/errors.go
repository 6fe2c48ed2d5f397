package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorCode categorizes adapter failures so the orchestrator can decide how
// to proceed without parsing message text.
type ErrorCode string

const (
	// CodeMissingCredential means the provider has no usable key; the call
	// was never attempted.
	CodeMissingCredential ErrorCode = "missing_credential"

	// CodeUpstream means the provider returned a non-success status.
	CodeUpstream ErrorCode = "upstream_error"

	// CodeTimeout means the hard per-call deadline was exceeded.
	CodeTimeout ErrorCode = "timeout"

	// CodeParse means a response arrived but was not in the expected shape.
	// The orchestrator treats this the same as an upstream error.
	CodeParse ErrorCode = "parse_error"
)

// Error is the uniform failure type returned by adapters.
type Error struct {
	// Provider that produced the error
	Provider ID

	// Code is the failure category
	Code ErrorCode

	// Message describes the failure; upstream bodies are truncated before
	// being embedded here
	Message string

	// Status is the upstream HTTP status or process exit code, when known
	Status int

	// Cause is the underlying error, if any
	Cause error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an adapter error.
func NewError(provider ID, code ErrorCode, message string, status int, cause error) *Error {
	return &Error{Provider: provider, Code: code, Message: message, Status: status, Cause: cause}
}

// MissingCredentialError reports an unconfigured provider key.
func MissingCredentialError(provider ID) *Error {
	return NewError(provider, CodeMissingCredential, fmt.Sprintf("no API credential configured for %s", provider), 0, nil)
}

// CodeOf extracts the error code from err, or "" when err is not an adapter
// error.
func CodeOf(err error) ErrorCode {
	var provErr *Error
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return ""
}

// ClassifyTransportError maps a failed HTTP round trip or process wait to the
// taxonomy: deadline and net timeouts become CodeTimeout, everything else
// CodeUpstream.
func ClassifyTransportError(provider ID, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(provider, CodeTimeout, "request deadline exceeded", 0, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(provider, CodeTimeout, "request timed out", 0, err)
	}
	return NewError(provider, CodeUpstream, err.Error(), 0, err)
}

// maxErrorBodyLen caps how much upstream body is embedded in error messages
// to keep logs readable.
const maxErrorBodyLen = 400

// TruncateBody trims an upstream response body for inclusion in an error
// message.
func TruncateBody(body []byte) string {
	if len(body) <= maxErrorBodyLen {
		return string(body)
	}
	return string(body[:maxErrorBodyLen]) + "...(truncated)"
}
