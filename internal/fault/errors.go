package fault

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Kind classifies a failure.
type Kind string

// Error kinds.
const (
	KindNetwork      Kind = "NETWORK_ERROR"
	KindTimeout      Kind = "TIMEOUT"
	KindNotFound     Kind = "NOT_FOUND"
	KindServer       Kind = "SERVER_ERROR"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindParse        Kind = "PARSE_ERROR"
	KindInvalidInput Kind = "INVALID_INPUT"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Kinds lists every kind in a stable order.
// Reports use it to print tallies deterministically.
var Kinds = []Kind{
	KindNetwork,
	KindTimeout,
	KindNotFound,
	KindServer,
	KindValidation,
	KindParse,
	KindInvalidInput,
	KindInternal,
}

// defaultStatus is the status number used when the caller does not supply one.
var defaultStatus = map[Kind]int{
	KindNetwork:      503,
	KindTimeout:      408,
	KindNotFound:     404,
	KindServer:       500,
	KindValidation:   400,
	KindParse:        422,
	KindInvalidInput: 400,
	KindInternal:     500,
}

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// DefaultStatus returns the status number associated with the kind.
func (k Kind) DefaultStatus() int {
	if s, ok := defaultStatus[k]; ok {
		return s
	}
	return 500
}

// Retryable reports whether the default retry predicate retries this kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer:
		return true
	default:
		return false
	}
}

// Error is a classified failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Message is a human-readable description.
	Message string

	// Status is a status number (HTTP-like). Zero is allowed when the
	// underlying condition has no meaningful status.
	Status int

	// Cause is the wrapped underlying error, if any.
	Cause error

	// Context holds reproduction details (url, path, tag, attempt, ...).
	Context map[string]any
}

// New creates an Error with the kind's default status.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Status:  kind.DefaultStatus(),
		Context: make(map[string]any),
	}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an Error that wraps cause.
func Wrap(kind Kind, cause error, message string) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

// WithStatus sets the status number and returns the receiver.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// With adds a context entry and returns the receiver.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error implements the error interface.
// Context keys are printed in sorted order so messages are reproducible.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range maps.Keys(e.Context) {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
// This lets callers write errors.Is(err, fault.New(fault.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
// Unclassified errors report KindInternal; nil reports "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable is the default retry predicate: only classified network,
// timeout and server errors are retried.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind.Retryable()
}
