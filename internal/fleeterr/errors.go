// Package fleeterr implements the error-kind taxonomy shared across the
// fleet manager, the blame engine, the commit extractor, and the
// provider clients. Error kinds are not Go types (no type-switch
// madness) but a small closed enum carried on a single Error struct,
// matching the way the teacher's domain packages expose sentinel
// errors plus an errors.Is-style classifier.
package fleeterr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is one of the error kinds named in the specification.
type Kind int

const (
	// KindUnknown is the zero value; Kind(err) returns it for any error
	// not constructed through this package.
	KindUnknown Kind = iota
	KindAuthenticationFailure
	KindRateLimitExceeded
	KindNotFound
	KindTransportFailure
	KindProtocolFailure
	KindRepositoryFailure
	KindFilesystemFailure
	KindCancelled
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailure:
		return "AuthenticationFailure"
	case KindRateLimitExceeded:
		return "RateLimitExceeded"
	case KindNotFound:
		return "NotFound"
	case KindTransportFailure:
		return "TransportFailure"
	case KindProtocolFailure:
		return "ProtocolFailure"
	case KindRepositoryFailure:
		return "RepositoryFailure"
	case KindFilesystemFailure:
		return "FilesystemFailure"
	case KindCancelled:
		return "Cancelled"
	case KindInvariantViolation:
		return "InvariantViolation"
	default:
		return "Unknown"
	}
}

// Error is a single-line, human-readable error tagged with a Kind.
// Message always begins with the kind name, per spec §7.
type Error struct {
	kind      Kind
	message   string
	cause     error
	ResetTime time.Time // only meaningful for KindRateLimitExceeded
}

func (e *Error) Error() string { return e.message }
func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the error kind tagged on err, or KindUnknown if err was
// not constructed through this package.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return KindUnknown
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{kind: kind, message: fmt.Sprintf("%s: %s", kind, msg), cause: cause}
}

// AuthenticationFailure reports invalid or expired credentials.
func AuthenticationFailure(format string, args ...interface{}) *Error {
	return newError(KindAuthenticationFailure, nil, format, args...)
}

// RateLimitExceeded reports a provider rate limit hit; resetTime is the
// moment the quota recovers.
func RateLimitExceeded(resetTime time.Time, format string, args ...interface{}) *Error {
	e := newError(KindRateLimitExceeded, nil, format, args...)
	e.ResetTime = resetTime
	return e
}

// NotFound reports an absent remote resource.
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

// TransportFailure reports a network/TLS/DNS failure, wrapping cause.
func TransportFailure(cause error, format string, args ...interface{}) *Error {
	return newError(KindTransportFailure, cause, format, args...)
}

// ProtocolFailure reports an unexpected response shape, wrapping cause.
func ProtocolFailure(cause error, format string, args ...interface{}) *Error {
	return newError(KindProtocolFailure, cause, format, args...)
}

// RepositoryFailure reports a missing or corrupted git repository.
func RepositoryFailure(cause error, format string, args ...interface{}) *Error {
	return newError(KindRepositoryFailure, cause, format, args...)
}

// FilesystemFailure reports a permission or I/O error, wrapping cause.
func FilesystemFailure(cause error, format string, args ...interface{}) *Error {
	return newError(KindFilesystemFailure, cause, format, args...)
}

// Cancelled reports a caller-driven cancellation.
func Cancelled(format string, args ...interface{}) *Error {
	return newError(KindCancelled, nil, format, args...)
}

// InvariantViolation reports a bug: an illegal registry transition or
// similar internal contract breach that should never occur in a
// correct implementation.
func InvariantViolation(format string, args ...interface{}) *Error {
	return newError(KindInvariantViolation, nil, format, args...)
}
