package services

import "errors"

var (
	ErrMissingFields         = errors.New("required fields are missing")
	ErrInvalidRole           = errors.New("invalid role")
	ErrPasswordTooShort      = errors.New("password must be at least 6 characters long")
	ErrDuplicateEmail        = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrWrongPassword         = errors.New("invalid current password")
	ErrUserNotFound          = errors.New("user not found")
	ErrTokenExpiredOrInvalid = errors.New("invalid or expired reset token")
	ErrEmailNotSent          = errors.New("email could not be sent")
	ErrForbidden             = errors.New("not allowed to modify this user")
)

const minPasswordLength = 6

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
