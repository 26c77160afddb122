// Package apperr is the error taxonomy shared by the application services.
// Handlers map a Kind to an HTTP status; services never pick status codes.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindPolicy
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindPolicy:
		return "policy"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries a Kind, a stable machine code and optional details for the response body.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind and Code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// With returns a copy of e with the given details merged in.
func (e *Error) With(details map[string]interface{}) *Error {
	out := *e
	out.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		out.Details[k] = v
	}
	for k, v := range details {
		out.Details[k] = v
	}
	return &out
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Authorization(code, msg string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: msg}
}

func Policy(code, msg string) *Error {
	return &Error{Kind: KindPolicy, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func Internal(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FromGorm maps storage errors onto the taxonomy. notFound is returned for
// gorm.ErrRecordNotFound so callers keep their resource-specific code.
func FromGorm(err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return notFound
		}
		return NotFound("NOT_FOUND", "record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Code: "ALREADY_EXISTS", Message: "record already exists", Err: err}
	default:
		return Internal("STORAGE_FAILURE", err)
	}
}
