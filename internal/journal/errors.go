package journal

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide on retries and messaging.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindRateLimited
	KindUpstreamUnavailable
	KindAuthentication
	KindTimeout
	KindPartialWrite
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate-limited"
	case KindUpstreamUnavailable:
		return "upstream-unavailable"
	case KindAuthentication:
		return "authentication"
	case KindTimeout:
		return "timeout"
	case KindPartialWrite:
		return "partial-write-failure"
	default:
		return "unknown"
	}
}

// Retriable reports whether the caller may reasonably retry the same operation later.
// Nothing in this package retries on its own.
func (k ErrorKind) Retriable() bool {
	switch k {
	case KindRateLimited, KindUpstreamUnavailable, KindAuthentication, KindTimeout:
		return true
	}
	return false
}

// Error is a classified failure scoped to a single wallet or token operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// NewError wraps err with a kind and the operation that failed.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification of err. Context deadline errors that were never
// classified are reported as timeouts.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

var userMessages = map[ErrorKind]string{
	KindValidation:          "Some trades from the data source were malformed and were skipped.",
	KindRateLimited:         "The trade data provider is rate limiting requests. Please wait a moment and try again.",
	KindUpstreamUnavailable: "The trade data provider is currently unavailable. Please try again later.",
	KindAuthentication:      "The trade data provider rejected our credentials. Check the API key configuration.",
	KindTimeout:             "The trade data provider took too long to respond. Please try again.",
	KindPartialWrite:        "Your note was saved for some trades but not all of them.",
	KindUnknown:             "Something went wrong while loading trades.",
}

// UserMessage returns the user-facing message for the classification of err.
func UserMessage(err error) string {
	return userMessages[KindOf(err)]
}
