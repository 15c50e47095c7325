// Package businessflow contains the core business logic and use cases for the ship ledger workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Admin user errors
	ErrUserNotFound      = errors.New("user not found")
	ErrNotAllowListed    = errors.New("email is not allow-listed")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrPasswordTooShort  = errors.New("password must be at least 6 characters")

	// OTP errors
	ErrNoValidOTPFound = errors.New("no valid OTP found")
	ErrInvalidOTPCode  = errors.New("invalid OTP code")
	ErrOTPExpired      = errors.New("OTP has expired")

	// Mail errors
	ErrMailDispatchFailed = errors.New("failed to send email")

	// Ledger errors
	ErrMissingFields = errors.New("required fields are missing")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
	ErrEmptyBatch    = errors.New("at least one entry is required")
	ErrExportFailed  = errors.New("failed to build export workbook")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsNotAllowListed(err error) bool {
	return errors.Is(err, ErrNotAllowListed)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsPasswordTooShort(err error) bool {
	return errors.Is(err, ErrPasswordTooShort)
}

func IsNoValidOTPFound(err error) bool {
	return errors.Is(err, ErrNoValidOTPFound)
}

func IsInvalidOTPCode(err error) bool {
	return errors.Is(err, ErrInvalidOTPCode)
}

func IsOTPExpired(err error) bool {
	return errors.Is(err, ErrOTPExpired)
}

func IsMailDispatchFailed(err error) bool {
	return errors.Is(err, ErrMailDispatchFailed)
}

func IsMissingFields(err error) bool {
	return errors.Is(err, ErrMissingFields)
}

func IsInvalidDate(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}

func IsEmptyBatch(err error) bool {
	return errors.Is(err, ErrEmptyBatch)
}
