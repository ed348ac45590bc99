// Package ugcerr defines the flat, typed error-kind enumeration shared by
// every component of the UGC subgraph (§7 of the design spec). Components
// lower in the stack (store, sibling client) return a *Error wrapping one
// of the Kind values; the resolver surface is the only layer that turns a
// Kind into a transport-facing representation.
package ugcerr

import (
	"errors"
	"fmt"
)

// Kind is a flat enumeration of the error kinds a component may report.
type Kind int

const (
	// KindUnknown is the zero value; never returned deliberately.
	KindUnknown Kind = iota
	// KindNotFound means the requested entity does not exist or is
	// invisible to the caller.
	KindNotFound
	// KindInvalid means input validation failed.
	KindInvalid
	// KindUnauthorized means the caller lacks privilege for the operation.
	KindUnauthorized
	// KindDuplicateReview means a uniqueness violation on (author, offer).
	KindDuplicateReview
	// KindConflict means a precondition failed, e.g. an illegal
	// moderation transition.
	KindConflict
	// KindTransient means a retryable downstream failure.
	KindTransient
	// KindCircuitOpen means a sibling circuit breaker is open.
	KindCircuitOpen
	// KindCancelled means the request deadline expired or was cancelled.
	KindCancelled
	// KindQueryTooComplex means the query cost gate rejected the request.
	KindQueryTooComplex
	// KindQueryTooDeep means the query depth gate rejected the request.
	KindQueryTooDeep
	// KindInternal means an unexpected failure; exposed to clients only
	// as an opaque message.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindInvalid:
		return "INVALID"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindDuplicateReview:
		return "DUPLICATE_REVIEW"
	case KindConflict:
		return "CONFLICT"
	case KindTransient:
		return "TRANSIENT"
	case KindCircuitOpen:
		return "CIRCUIT_OPEN"
	case KindCancelled:
		return "CANCELLED"
	case KindQueryTooComplex:
		return "QUERY_TOO_COMPLEX"
	case KindQueryTooDeep:
		return "QUERY_TOO_DEEP"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is the typed error carried between components. Op names the
// failing operation (e.g. "store.InsertReview") for logging; Field names
// the offending input field for KindInvalid, empty otherwise.
type Error struct {
	Kind  Kind
	Op    string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel for e's Kind, so that
// errors.Is(err, ugcerr.NotFound) works regardless of Op/Field/Err.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind && other.Op == "" && other.Field == ""
	}
	return false
}

// sentinel constructs a bare *Error usable with errors.Is as a kind marker.
func sentinel(k Kind) *Error { return &Error{Kind: k} }

// Sentinel kind markers, analogous to the teacher's ErrNotFound et al.
var (
	NotFound        = sentinel(KindNotFound)
	Invalid         = sentinel(KindInvalid)
	Unauthorized    = sentinel(KindUnauthorized)
	DuplicateReview = sentinel(KindDuplicateReview)
	Conflict        = sentinel(KindConflict)
	Transient       = sentinel(KindTransient)
	CircuitOpen     = sentinel(KindCircuitOpen)
	Cancelled       = sentinel(KindCancelled)
	QueryTooComplex = sentinel(KindQueryTooComplex)
	QueryTooDeep    = sentinel(KindQueryTooDeep)
	Internal        = sentinel(KindInternal)
)

// New builds an *Error for the given kind and operation.
func New(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// Newf builds an *Error from a formatted message.
func Newf(k Kind, op, format string, a ...any) *Error {
	return &Error{Kind: k, Op: op, Err: fmt.Errorf(format, a...)}
}

// NewField builds an *Error for KindInvalid naming the offending field.
func NewField(op, field string, err error) *Error {
	return &Error{Kind: KindInvalid, Op: op, Field: field, Err: err}
}

// Of reports the Kind of err, walking the error chain, defaulting to
// KindInternal for errors this package did not produce.
func Of(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return Of(err) == k
}
