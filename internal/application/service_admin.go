package application

import (
	"context"
	"log/slog"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
)

// Unlock clears lockout state ahead of expiry.
func (s *Service) Unlock(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return err
	}
	event := s.newEvent(eventTypeAccountUnlocked, accountID, map[string]any{})
	if err := s.accounts.UpdateLockout(ctx, accountID, s.lockout.RegisterSuccess(), s.nowFn(), event); err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "account unlocked",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "unlock",
		"outcome", "success",
		"account_id", accountID,
	)
	return nil
}

// UnlockByEmail is the operator-tooling variant of Unlock.
func (s *Service) UnlockByEmail(ctx context.Context, email string) (AccountView, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return AccountView{}, err
	}
	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		return AccountView{}, err
	}
	if err := s.Unlock(ctx, account.AccountID); err != nil {
		return AccountView{}, err
	}
	return toAccountView(account), nil
}

// SetActive toggles whether an account may sign in. Deactivation also revokes
// the refresh token; outstanding access tokens fail the gate's active check.
func (s *Service) SetActive(ctx context.Context, accountID uuid.UUID, active bool) (AccountView, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return AccountView{}, err
	}
	event := s.newEvent(eventTypeAccountStatusChanged, accountID, map[string]any{"active": active})
	if err := s.accounts.SetActive(ctx, accountID, active, s.nowFn(), event); err != nil {
		return AccountView{}, err
	}
	return s.GetAccount(ctx, accountID)
}
