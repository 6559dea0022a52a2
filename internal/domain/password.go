package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	minPasswordLength = 6
	// bcrypt ignores input past 72 bytes, so longer passwords are rejected outright.
	maxPasswordLength = 72
	maxNameLength     = 100
)

// ValidatePassword enforces the baseline password policy.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be <= %d bytes", ErrInvalidInput, maxPasswordLength)
	}
	return nil
}

// NormalizeEmail canonicalizes email for case-insensitive identity.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return trimmed, nil
}

// ValidateName checks a person-name field.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: is required", ErrInvalidInput)
	}
	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: must be <= %d characters", ErrInvalidInput, maxNameLength)
	}
	return nil
}

// fieldMessage strips the sentinel prefix so field details read cleanly.
func fieldMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}

// Check records err against field when it is non-nil.
func (e *ValidationError) Check(field string, err error) {
	if err != nil {
		e.Add(field, fieldMessage(err))
	}
}
