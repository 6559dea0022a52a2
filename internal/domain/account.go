package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the authentication projection of an institutional user record.
// Secret fields are fingerprints or hashes and never leave the service.
type Account struct {
	AccountID    uuid.UUID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	IsActive     bool

	FailedAttempts int
	LockedUntil    *time.Time

	// RefreshTokenHash fingerprints the single active refresh token.
	RefreshTokenHash    string
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lockout returns the lockout envelope stored on the account.
func (a Account) Lockout() LockoutState {
	return LockoutState{FailedAttempts: a.FailedAttempts, LockedUntil: a.LockedUntil}
}

// HasPendingReset reports whether a reset token is outstanding at now.
func (a Account) HasPendingReset(now time.Time) bool {
	return a.ResetTokenHash != "" && a.ResetTokenExpiresAt != nil && now.Before(*a.ResetTokenExpiresAt)
}

// LoginAttempt records authentication outcomes for audit and history endpoints.
type LoginAttempt struct {
	ID            int64
	AccountID     *uuid.UUID
	Email         string
	AttemptAt     time.Time
	IPAddress     string
	Status        string
	FailureReason string
	UserAgent     string
}

const (
	LoginStatusSuccess = "SUCCESS"
	LoginStatusFailed  = "FAILED"
)
