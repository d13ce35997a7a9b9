// errors.go -- Classified service failures.
package auth

import "errors"

// Failure kinds. The HTTP boundary maps each to a status code; anything
// else is an infrastructure failure and becomes a 500.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Error is a classified failure with a client-safe message.
// errors.Is(err, ErrConflict) matches through Unwrap.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }

func conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

func notFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func badRequest(msg string) error { return &Error{Kind: ErrBadRequest, Message: msg} }
