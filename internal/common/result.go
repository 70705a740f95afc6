package common

import "errors"

// User-facing messages. They never carry internal detail.
const (
	MessageConflict           = "User with this email already exists"
	MessageInvalidCredentials = "Invalid email or password"
	MessageUnauthenticated    = "You must be logged in"
	MessageNotFound           = "Todo not found or you do not have permission to access it"
	MessageUnexpected         = "An unexpected error occurred"
)

// Result is the uniform envelope returned by every service entry point:
// either Success with optional Data, or a non-empty Error message.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

// Err returns the error a failed Result was built from. It is never
// serialized.
func (r Result[T]) Err() error { return r.err }

// OK wraps data into a successful Result.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data}
}

// Done is a successful Result without payload.
func Done() Result[struct{}] {
	return Result[struct{}]{Success: true}
}

// Fail converts err into a failed Result carrying PublicMessage(err).
func Fail[T any](err error) Result[T] {
	return Result[T]{Error: PublicMessage(err), err: err}
}

// PublicMessage maps an error to the message shown to the caller.
// Anything that is not a known domain error collapses to MessageUnexpected.
func PublicMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrorAlreadyExists):
		return MessageConflict
	case errors.Is(err, ErrorInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrorUnauthenticated):
		return MessageUnauthenticated
	case errors.Is(err, ErrorNotFound):
		return MessageNotFound
	default:
		return MessageUnexpected
	}
}
