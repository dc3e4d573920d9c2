// Package validation provides input validation utilities.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

var (
	// ErrPasswordTooShort indicates password is less than minimum length.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordNoUppercase indicates password has no uppercase letter.
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	// ErrPasswordNoDigit indicates password has no digit.
	ErrPasswordNoDigit = errors.New("password must contain at least one digit")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
	// ErrInvalidID indicates the value is not a well-formed identifier.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrInvalidEmail indicates the value is not a valid email address.
	ErrInvalidEmail = errors.New("invalid email address")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateID checks that id is a well-formed UUID.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// ValidateEmail checks basic email address shape.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateName validates a name field (app name, agent name, etc.)
func ValidateName(name string, maxLength int) error {
	if name == "" || len(name) > maxLength {
		return ErrInputTooLong
	}

	// Allow alphanumeric, spaces, hyphens, underscores
	validName := regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	if !validName.MatchString(name) {
		return ErrInputInvalid
	}

	return nil
}

// ValidateVariables validates a variable-bindings payload: names must be
// non-empty and values must not contain null bytes.
func ValidateVariables(vars map[string]string) error {
	for name, value := range vars {
		if strings.TrimSpace(name) == "" {
			return ErrInputInvalid
		}
		if strings.Contains(name, "\x00") || strings.Contains(value, "\x00") {
			return ErrInputInvalid
		}
		if len(value) > 65536 {
			return ErrInputTooLong
		}
	}
	return nil
}

// ValidatePassword validates minimum password requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}

	var hasUpper, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}

	if !hasUpper {
		return ErrPasswordNoUppercase
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	return nil
}
