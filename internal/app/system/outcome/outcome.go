// internal/app/system/outcome/outcome.go

// Package outcome defines the failure kinds every fieldhub operation reports.
//
// Operations return plain Go errors. When an error carries one of the four
// kinds below it is an *Error, and callers inspect it with KindOf or Is
// rather than matching message text:
//
//   - NotFound: a referenced user, community or camera placement does not exist
//   - Conflict: a uniqueness invariant was violated
//   - Malformed: input was rejected before any store mutation
//   - Unavailable: the backing store could not be reached or did not answer in time
//
// Store packages translate driver errors exactly once, at their boundary, via
// FromStore. Everything above the stores passes outcomes through unchanged.
package outcome

import (
	"errors"
	"fmt"
	"strings"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies a failure.
type Kind string

const (
	KindNone        Kind = ""
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindMalformed   Kind = "malformed_input"
	KindUnavailable Kind = "store_unavailable"
)

// Error is a classified failure. Op names the operation that failed
// (e.g. "cameras.insert"), Msg is safe to show to a caller, Err is the cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil && (e.Msg == "" || e.Msg != e.Err.Error()) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing referent.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation. cause is usually a store
// package sentinel such as ErrAlreadyMember so errors.Is keeps working.
func Conflict(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Malformed reports input rejected before reaching the store.
func Malformed(op, format string, args ...any) *Error {
	return &Error{Kind: KindMalformed, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable reports a store fault. The cause is kept.
func Unavailable(op string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Msg: "store unavailable", Err: cause}
}

// InternalError is a fault in fieldhub's own data, such as a stored document
// that no longer fits its model. It carries no kind: the store answered, so
// it is not Unavailable, and the HTTP layer reports it as a 500.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an InternalError.
func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// IsDecodeError reports whether err is a stored document failing to decode
// into its model.
func IsDecodeError(err error) bool {
	var de *bsoncodec.DecodeError
	var vde bsoncodec.ValueDecoderError
	return errors.As(err, &de) || errors.As(err, &vde)
}

// KindOf returns the kind of the first *Error in err's chain, or KindNone.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindNone
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var oe *Error
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromStore translates a mongo driver error into an outcome. It returns nil
// for nil, leaves errors that already carry a kind untouched, and maps:
//
//	mongo.ErrNoDocuments          -> NotFound
//	duplicate key                  -> Conflict (callers usually replace this with a named one)
//	geometry rejected by 2dsphere -> Malformed
//	document failed to decode     -> InternalError (no kind)
//	everything else               -> Unavailable
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InternalError
	if KindOf(err) != KindNone || errors.As(err, &ie) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Kind: KindNotFound, Op: op, Msg: "no matching record", Err: err}
	case wafflemongo.IsDup(err):
		return &Error{Kind: KindConflict, Op: op, Msg: "duplicate record", Err: err}
	case IsGeoRejection(err):
		return &Error{Kind: KindMalformed, Op: op, Msg: "geometry rejected by store", Err: err}
	case IsDecodeError(err):
		return Internal(op, err)
	}
	return Unavailable(op, err)
}

// IsGeoRejection reports whether the server refused a document or query
// because of its geometry (bad rings, self-intersection, out-of-range
// coordinates).
func IsGeoRejection(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 16755 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 16755 || ce.Code == 2) && geoWords(ce.Message) {
		return true
	}
	return geoWords(err.Error())
}

func geoWords(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "extract geo keys") ||
		strings.Contains(m, "loop is not valid") ||
		strings.Contains(m, "malformed geometry") ||
		(strings.Contains(m, "geojson") && strings.Contains(m, "invalid"))
}
