package store

import "errors"

var (
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrEmailTaken           = errors.New("email already registered")
	ErrBusinessNotFound     = errors.New("business not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Invalid(message string) error {
	return &ValidationError{Message: message}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
