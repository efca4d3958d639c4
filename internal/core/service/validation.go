package service

import (
	"strings"

	"github.com/quantara/console/internal/core/domain"
)

const (
	// Minimum password lengths: ordinary accounts and the first admin.
	minPasswordLen      = 6
	minAdminPasswordLen = 8
)

// Result error codes shared by the envelope-returning services.
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodePasswordMismatch       = "PASSWORD_MISMATCH"
	CodePasswordTooShort       = "PASSWORD_TOO_SHORT"
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeAdminExists            = "ADMIN_EXISTS"
	CodeDatabase               = "DATABASE_ERROR"
	CodeCreationFailed         = "CREATION_FAILED"
	CodeAuth                   = "AUTH_ERROR"
	CodeUserCreationFailed     = "USER_CREATION_FAILED"
	CodeUnexpected             = "UNEXPECTED_ERROR"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeAlreadyAdmin           = "ALREADY_ADMIN"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSIONS"
	CodeRPC                    = "RPC_ERROR"
	CodePromotionFailed        = "PROMOTION_FAILED"
)

func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

func invalid(code, message string, err error) *domain.ValidationError {
	return &domain.ValidationError{Code: code, Message: message, Err: err}
}

// validateSignUp checks a registration form in the order the form reports
// problems: confirmation first, then length, then the address.
func validateSignUp(email, password, confirm string) error {
	if password != confirm {
		return invalid(CodePasswordMismatch, "Passwords do not match", domain.ErrPasswordMismatch)
	}
	if len(password) < minPasswordLen {
		return invalid(CodePasswordTooShort, "Password must be at least 6 characters", domain.ErrPasswordTooShort)
	}
	if !validEmail(email) {
		return invalid(CodeInvalidEmail, "Please enter a valid email address", domain.ErrInvalidEmail)
	}
	return nil
}

func validateBootstrap(email, password, confirm string) error {
	if email == "" || password == "" {
		return invalid(CodeValidation, "Email and password are required", nil)
	}
	if password != confirm {
		return invalid(CodePasswordMismatch, "Passwords do not match", domain.ErrPasswordMismatch)
	}
	if len(password) < minAdminPasswordLen {
		return invalid(CodePasswordTooShort, "Password must be at least 8 characters long", domain.ErrPasswordTooShort)
	}
	if !validEmail(email) {
		return invalid(CodeInvalidEmail, "Please enter a valid email address", domain.ErrInvalidEmail)
	}
	return nil
}
