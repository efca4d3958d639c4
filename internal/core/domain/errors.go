package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("access forbidden")
	ErrSessionExpired     = errors.New("session expired")

	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordMismatch = errors.New("passwords do not match")

	ErrProfileNotFound     = errors.New("profile not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationResolved = errors.New("application already resolved")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// ValidationError is an input rejected before any remote call. Message is
// safe to show to the user.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
