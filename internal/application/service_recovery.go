package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

const resetDeliveryTimeout = 10 * time.Second

// ForgotPassword issues a reset token for a known, active account.
// Unknown emails get the same nil result so callers cannot probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		verr := domain.NewValidationError()
		verr.Check("email", err)
		return verr
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Default().InfoContext(ctx, "password reset requested for unknown email",
				"service", serviceName,
				"module", "application",
				"layer", "application",
				"operation", "forgot_password",
				"outcome", "ignored",
			)
			return nil
		}
		return err
	}
	if !account.IsActive {
		return nil
	}

	now := s.nowFn()
	token := randomHex(32)
	expiresAt := now.Add(s.cfg.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.AccountID, hashToken(token), expiresAt, now); err != nil {
		return err
	}

	if s.resetSender == nil {
		return nil
	}
	delivery := ports.ResetTokenDelivery{
		AccountID: account.AccountID,
		Email:     account.Email,
		FirstName: account.FirstName,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	s.deliveries.Add(1)
	go s.sendResetToken(context.WithoutCancel(ctx), delivery)
	return nil
}

// sendResetToken runs off the request path so known and unknown emails answer
// in similar time.
func (s *Service) sendResetToken(ctx context.Context, delivery ports.ResetTokenDelivery) {
	defer s.deliveries.Done()
	ctx, cancel := context.WithTimeout(ctx, resetDeliveryTimeout)
	defer cancel()
	if err := s.resetSender.SendResetToken(ctx, delivery); err != nil {
		slog.Default().ErrorContext(ctx, "reset token delivery failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "forgot_password",
			"outcome", "failure",
			"account_id", delivery.AccountID,
			"error", err,
		)
	}
}

// ResetPassword redeems a pending reset token. Unknown, consumed and expired
// tokens all fail with the same error.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return domain.ErrInvalidOrExpiredResetToken
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		verr := domain.NewValidationError()
		verr.Check("password", err)
		return verr
	}

	tokenHash := hashToken(token)
	account, err := s.accounts.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidOrExpiredResetToken
		}
		return err
	}
	now := s.nowFn()
	if !account.HasPendingReset(now) {
		return domain.ErrInvalidOrExpiredResetToken
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	event := s.newEvent(eventTypeAccountPasswordReset, account.AccountID, map[string]any{})
	accountID, err := s.accounts.ConsumeResetToken(ctx, tokenHash, passwordHash, now, event)
	if err != nil {
		return err
	}
	slog.Default().InfoContext(ctx, "password reset completed",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", "reset_password",
		"outcome", "success",
		"account_id", accountID,
	)
	return nil
}

// ChangePassword re-hashes the password for an authenticated caller and
// revokes the refresh token so other clients must sign in again.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, req ChangePasswordRequest) error {
	verr := domain.NewValidationError()
	if req.CurrentPassword == "" {
		verr.Add("currentPassword", "current password is required")
	}
	verr.Check("newPassword", domain.ValidatePassword(req.NewPassword))
	if err := verr.OrNil(); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(account.PasswordHash, req.CurrentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	passwordHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	event := s.newEvent(eventTypeAccountPasswordChanged, account.AccountID, map[string]any{})
	return s.accounts.UpdatePassword(ctx, account.AccountID, passwordHash, s.nowFn(), event)
}
