// Package cerr represents the core layer errors.
// This package includes the Error struct which helps to wrap common
// errors with HTTPStatusCode, so the errors may be classified based
// on their types. The Kind string additionally names the error kind
// from the error-handling design so that HTTP handlers can render the
// {code, message, details?} response body without re-deriving it from
// the status code.
package cerr

import (
	"fmt"
	"net/http"
)

// Error represents an error, aka Err, and assigns a HTTPStatusCode
// http status code and a stable Kind string to that error based on its
// generic category.
type Error struct {
	Err            error
	Kind           string
	HTTPStatusCode int
}

// Unwrap returns the wrapped inner error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error implements the error interface, returning a string
// representation of the Error instance.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s %d] %s", e.Kind, e.HTTPStatusCode, e.Err.Error())
}

// These constants name the error kinds from the error-handling design.
const (
	KindValidation     = "ValidationError"
	KindNotFound       = "NotFoundError"
	KindConflict       = "ConflictError"
	KindArchived       = "ArchivedError"
	KindSemVerViolation = "SemVerViolation"
	KindUnauthorized   = "UnauthorizedError"
	KindForbidden      = "ForbiddenError"
	KindIntegrity      = "IntegrityError"
	KindTransientIO    = "TransientIOError"
	KindChildExecution = "ChildExecutionError"
	KindCancelled      = "CancelledError"
)

// BadRequest wraps the err error and marks it as a bad request, that
// is, the caller of the function which is returning this error is
// responsible for that error and may fix it by modifying the args
// of that function.
func BadRequest(err error) *Error {
	return &Error{Err: err, Kind: KindValidation, HTTPStatusCode: http.StatusBadRequest}
}

// Authentication wraps the err error and marks it as an authentication
// issue, that is, the caller is not identified and/or authenticated
// properly.
func Authentication(err error) *Error {
	return &Error{Err: err, Kind: KindUnauthorized, HTTPStatusCode: http.StatusUnauthorized}
}

// Authorization wraps the err error and marks it as an authorization
// issue, that is, the caller is authenticated but does not have
// enough permission to invoke that function.
func Authorization(err error) *Error {
	return &Error{Err: err, Kind: KindForbidden, HTTPStatusCode: http.StatusForbidden}
}

// NotFound wraps the err error and marks it as a not found issue, that
// is, the requested object does not exist.
func NotFound(err error) *Error {
	return &Error{Err: err, Kind: KindNotFound, HTTPStatusCode: http.StatusNotFound}
}

// Conflict wraps the err error and marks it as a conflict issue, that
// is, the requested operation may not be accomplished due to the
// current conflicting system state (uniqueness violation, in-use
// deletion attempt, and similar).
func Conflict(err error) *Error {
	return &Error{Err: err, Kind: KindConflict, HTTPStatusCode: http.StatusConflict}
}

// Archived wraps the err error and marks it as an operation attempted
// against an archived resource which no longer accepts mutation.
func Archived(err error) *Error {
	return &Error{Err: err, Kind: KindArchived, HTTPStatusCode: http.StatusGone}
}

// SemVerViolation wraps the err error and marks it as a rejected
// semantic version bump, returned only when the server's "enforce
// semver" setting is on.
func SemVerViolation(err error) *Error {
	return &Error{Err: err, Kind: KindSemVerViolation, HTTPStatusCode: http.StatusUnprocessableEntity}
}

// Integrity wraps the err error and marks a checksum mismatch or a
// metadata row whose content bytes are missing from the content store.
func Integrity(err error) *Error {
	return &Error{Err: err, Kind: KindIntegrity, HTTPStatusCode: http.StatusConflict}
}

// TransientIO wraps the err error and marks it as a soft, retriable
// I/O or network failure; callers should proceed to their next
// scheduled attempt rather than treat it as terminal.
func TransientIO(err error) *Error {
	return &Error{Err: err, Kind: KindTransientIO, HTTPStatusCode: http.StatusServiceUnavailable}
}

// ChildExecution wraps the err error and marks a failure originating
// from the external enforcement binary: a non-zero/unexpected exit, or
// unparseable JSON output.
func ChildExecution(err error) *Error {
	return &Error{Err: err, Kind: KindChildExecution, HTTPStatusCode: http.StatusInternalServerError}
}

// Cancelled wraps the err error and marks it as a consequence of an
// operation's cancellation signal firing.
func Cancelled(err error) *Error {
	return &Error{Err: err, Kind: KindCancelled, HTTPStatusCode: 499}
}
