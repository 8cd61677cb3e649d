package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so handlers can map it to an HTTP status
// without string matching.
type Kind int

const (
	// KindConflict: the action would violate the single-open-session rule.
	KindConflict Kind = iota
	// KindState: the action is impossible in the current ledger state.
	KindState
	// KindNotFound: the referenced record or session does not exist.
	KindNotFound
	// KindUnauthorized: the caller lacks the privilege for this action.
	KindUnauthorized
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...interface{}) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func isKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func IsConflict(err error) bool     { return isKind(err, KindConflict) }
func IsState(err error) bool        { return isKind(err, KindState) }
func IsNotFound(err error) bool     { return isKind(err, KindNotFound) }
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }
