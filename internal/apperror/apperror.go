package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure categories the API can report.
// Handlers use errors.Is against these to pick an HTTP status; services
// use the constructors below to attach a field and a human message.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("duplicate")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthorized       = errors.New("unauthorized")
)

// AppError is the structured error every operation returns to the client:
// a field name plus a human-readable message. Callers inspect the shape,
// they never see a raw storage error.
type AppError struct {
	Err     error  // sentinel category
	Field   string // input field the error refers to ("" when not field-specific)
	Message string // human-readable description
}

func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ValidationFailed reports a bad input value on a named field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Field: field, Message: message}
}

// Duplicate reports a uniqueness conflict on a named field.
func Duplicate(field, message string) *AppError {
	return &AppError{Err: ErrDuplicate, Field: field, Message: message}
}

// NotFound reports a missing entity. The field names the lookup input so
// the client can attach the message to the right form control.
func NotFound(field, message string) *AppError {
	return &AppError{Err: ErrNotFound, Field: field, Message: message}
}

// InvalidCredentials reports an authentication mismatch.
func InvalidCredentials(field, message string) *AppError {
	return &AppError{Err: ErrInvalidCredentials, Field: field, Message: message}
}

// TokenExpired reports a reset token that is absent from the cache —
// whether it expired, was already redeemed, or never existed. The three
// cases are deliberately indistinguishable to the caller.
func TokenExpired() *AppError {
	return &AppError{Err: ErrTokenExpired, Field: "token", Message: "token expired"}
}

// UserGone reports a reset token whose user id no longer resolves (the
// account was deleted after the token was issued).
func UserGone() *AppError {
	return &AppError{Err: ErrNotFound, Field: "token", Message: "user no longer exists"}
}
