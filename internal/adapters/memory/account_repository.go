package memory

import (
	"context"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

type AccountRepository struct {
	store *Store
}

func (r *AccountRepository) Create(_ context.Context, account domain.Account, events ...ports.OutboxEvent) (domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[account.Email]; ok {
		return domain.Account{}, domain.ErrEmailTaken
	}
	if account.AccountID == uuid.Nil {
		account.AccountID = uuid.New()
	}
	s.accounts[account.AccountID] = cloneAccount(account)
	s.byEmail[account.Email] = account.AccountID
	s.enqueueLocked(events)
	return cloneAccount(account), nil
}

func (r *AccountRepository) GetByID(_ context.Context, accountID uuid.UUID) (domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *AccountRepository) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return cloneAccount(s.accounts[id]), nil
}

func (r *AccountRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tokenHash == "" {
		return domain.Account{}, domain.ErrNotFound
	}
	for _, account := range s.accounts {
		if account.ResetTokenHash == tokenHash {
			return cloneAccount(account), nil
		}
	}
	return domain.Account{}, domain.ErrNotFound
}

func (r *AccountRepository) UpdateLockout(_ context.Context, accountID uuid.UUID, state domain.LockoutState, at time.Time, events ...ports.OutboxEvent) error {
	return r.mutate(accountID, events, func(a *domain.Account) bool {
		a.FailedAttempts = state.FailedAttempts
		a.LockedUntil = cloneTime(state.LockedUntil)
		a.UpdatedAt = at
		return true
	})
}

func (r *AccountRepository) RecordLoginSuccess(_ context.Context, accountID uuid.UUID, refreshTokenHash string, at time.Time) error {
	return r.mutate(accountID, nil, func(a *domain.Account) bool {
		a.FailedAttempts = 0
		a.LockedUntil = nil
		a.RefreshTokenHash = refreshTokenHash
		a.LastLoginAt = &at
		a.UpdatedAt = at
		return true
	})
}

func (r *AccountRepository) RotateRefreshToken(_ context.Context, accountID uuid.UUID, currentHash, nextHash string, at time.Time) (bool, error) {
	swapped := false
	err := r.mutate(accountID, nil, func(a *domain.Account) bool {
		if currentHash == "" || a.RefreshTokenHash != currentHash {
			return false
		}
		a.RefreshTokenHash = nextHash
		a.UpdatedAt = at
		swapped = true
		return true
	})
	return swapped, err
}

func (r *AccountRepository) ClearRefreshToken(_ context.Context, accountID uuid.UUID, currentHash string, at time.Time) (bool, error) {
	cleared := false
	err := r.mutate(accountID, nil, func(a *domain.Account) bool {
		if currentHash == "" || a.RefreshTokenHash != currentHash {
			return false
		}
		a.RefreshTokenHash = ""
		a.UpdatedAt = at
		cleared = true
		return true
	})
	return cleared, err
}

func (r *AccountRepository) SetResetToken(_ context.Context, accountID uuid.UUID, tokenHash string, expiresAt, at time.Time) error {
	return r.mutate(accountID, nil, func(a *domain.Account) bool {
		a.ResetTokenHash = tokenHash
		a.ResetTokenExpiresAt = &expiresAt
		a.UpdatedAt = at
		return true
	})
}

func (r *AccountRepository) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, at time.Time, events ...ports.OutboxEvent) (uuid.UUID, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tokenHash == "" {
		return uuid.Nil, domain.ErrInvalidOrExpiredResetToken
	}
	for id, a := range s.accounts {
		if a.ResetTokenHash != tokenHash {
			continue
		}
		if !a.HasPendingReset(at) {
			return uuid.Nil, domain.ErrInvalidOrExpiredResetToken
		}
		a.PasswordHash = passwordHash
		a.ResetTokenHash = ""
		a.ResetTokenExpiresAt = nil
		a.RefreshTokenHash = ""
		a.FailedAttempts = 0
		a.LockedUntil = nil
		a.UpdatedAt = at
		s.accounts[id] = a
		s.enqueueLocked(events)
		return id, nil
	}
	return uuid.Nil, domain.ErrInvalidOrExpiredResetToken
}

func (r *AccountRepository) UpdatePassword(_ context.Context, accountID uuid.UUID, passwordHash string, at time.Time, events ...ports.OutboxEvent) error {
	return r.mutate(accountID, events, func(a *domain.Account) bool {
		a.PasswordHash = passwordHash
		a.ResetTokenHash = ""
		a.ResetTokenExpiresAt = nil
		a.RefreshTokenHash = ""
		a.UpdatedAt = at
		return true
	})
}

func (r *AccountRepository) SetActive(_ context.Context, accountID uuid.UUID, active bool, at time.Time, events ...ports.OutboxEvent) error {
	return r.mutate(accountID, events, func(a *domain.Account) bool {
		a.IsActive = active
		if !active {
			a.RefreshTokenHash = ""
		}
		a.UpdatedAt = at
		return true
	})
}

// mutate applies fn under the store lock; fn returns false to leave the record untouched.
func (r *AccountRepository) mutate(accountID uuid.UUID, events []ports.OutboxEvent, fn func(*domain.Account) bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if !fn(&account) {
		return nil
	}
	s.accounts[accountID] = account
	s.enqueueLocked(events)
	return nil
}

func cloneAccount(a domain.Account) domain.Account {
	a.LockedUntil = cloneTime(a.LockedUntil)
	a.ResetTokenExpiresAt = cloneTime(a.ResetTokenExpiresAt)
	a.LastLoginAt = cloneTime(a.LastLoginAt)
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
