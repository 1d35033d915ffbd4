// Package errs defines the closed set of error kinds used across the
// validation pipeline and the API client. Callers branch on Kind (via IsKind
// or errors.As), never on message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindFormat means the input is not syntactically valid (e.g. unparseable URL).
	KindFormat Kind = iota
	// KindSecurity means the input was denied by policy (blocked host, blocked
	// IP, wrong scheme, oversized payload, disallowed content type).
	KindSecurity
	// KindResolution means DNS lookup failed.
	KindResolution
	// KindContent means the bytes failed content validation (empty, bad magic
	// bytes, non-square dimensions).
	KindContent
	// KindIO means a local filesystem failure (not found, permission denied).
	KindIO
	// KindUpstream means the generation API returned a non-success status.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindSecurity:
		return "security"
	case KindResolution:
		return "resolution"
	case KindContent:
		return "content"
	case KindIO:
		return "io"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// Category buckets upstream API failures by status code.
type Category string

const (
	CategoryInvalidInput     Category = "invalid_input"
	CategoryAuthFailed       Category = "auth_failed"
	CategoryNotAuthorized    Category = "not_authorized"
	CategoryValidationFailed Category = "validation_failed"
	CategoryRateLimited      Category = "rate_limited"
	CategoryGeneric          Category = "generic"
)

// Error is the tagged error type shared by all validators and the API client.
type Error struct {
	Kind Kind
	// Category is set only for KindUpstream.
	Category Category
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a fixed message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message, keeping the cause reachable via
// errors.Unwrap.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Upstream returns a KindUpstream error tagged with a category.
func Upstream(category Category, msg string) *Error {
	return &Error{Kind: KindUpstream, Category: category, Msg: msg}
}

// IsKind reports whether err (or anything it wraps) is an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CategoryOf returns the upstream category of err, or CategoryGeneric if err
// is not an upstream Error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindUpstream {
		return e.Category
	}
	return CategoryGeneric
}
