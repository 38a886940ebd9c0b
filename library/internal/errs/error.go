package errs

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindForbidden          Kind = "FORBIDDEN"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindStorage            Kind = "STORAGE_ERROR"
)

// Error is a domain failure. Errors with an empty Message act as kind-level sentinels:
// errors.Is(err, ErrConflict) holds for every conflict, errors.Is(err, ErrNoneAvailable) only for that one.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrStorage            = &Error{Kind: KindStorage}

	ErrAlreadyProcessed = &Error{Kind: KindConflict, Message: "already processed"}
	ErrNoneAvailable    = &Error{Kind: KindConflict, Message: "none available"}
	ErrPendingExists    = &Error{Kind: KindConflict, Message: "pending request already exists"}
	ErrDuplicateBook    = &Error{Kind: KindConflict, Message: "book already exists"}
	ErrDuplicateEmail   = &Error{Kind: KindConflict, Message: "email already registered"}
	ErrAllOnShelf       = &Error{Kind: KindConflict, Message: "all copies already available"}
	ErrAccountInactive  = &Error{Kind: KindForbidden, Message: "account inactive"}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure.
func Storage(err error, op string) error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// KindOf returns the domain kind carried by err, or KindStorage for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		if de.Message == "" {
			return de.Error()
		}
		return de.Message
	}
	return err.Error()
}
