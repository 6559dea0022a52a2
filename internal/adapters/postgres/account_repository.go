package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account domain.Account, events ...ports.OutboxEvent) (domain.Account, error) {
	if account.AccountID == uuid.Nil {
		account.AccountID = uuid.New()
	}
	rec := fromDomainAccount(account)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		return enqueueTx(tx, events)
	})
	if err != nil {
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error) {
	return r.take(ctx, "account_id = ?", accountID)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.take(ctx, "email = ?", email)
}

func (r *accountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (domain.Account, error) {
	if tokenHash == "" {
		return domain.Account{}, domain.ErrNotFound
	}
	return r.take(ctx, "reset_token_hash = ?", tokenHash)
}

func (r *accountRepository) take(ctx context.Context, query string, arg any) (domain.Account, error) {
	var rec accountModel
	if err := r.db.WithContext(ctx).Where(query, arg).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, err
	}
	return toDomainAccount(rec), nil
}

func (r *accountRepository) UpdateLockout(ctx context.Context, accountID uuid.UUID, state domain.LockoutState, at time.Time, events ...ports.OutboxEvent) error {
	return r.updateTx(ctx, accountID, events, map[string]any{
		"failed_attempts": state.FailedAttempts,
		"locked_until":    state.LockedUntil,
		"updated_at":      at,
	})
}

func (r *accountRepository) RecordLoginSuccess(ctx context.Context, accountID uuid.UUID, refreshTokenHash string, at time.Time) error {
	return r.updateTx(ctx, accountID, nil, map[string]any{
		"failed_attempts":    0,
		"locked_until":       nil,
		"refresh_token_hash": nullableString(refreshTokenHash),
		"last_login_at":      at,
		"updated_at":         at,
	})
}

// RotateRefreshToken is a compare-and-swap on the stored fingerprint.
func (r *accountRepository) RotateRefreshToken(ctx context.Context, accountID uuid.UUID, currentHash, nextHash string, at time.Time) (bool, error) {
	if currentHash == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ? AND refresh_token_hash = ?", accountID, currentHash).
		Updates(map[string]any{
			"refresh_token_hash": nextHash,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *accountRepository) ClearRefreshToken(ctx context.Context, accountID uuid.UUID, currentHash string, at time.Time) (bool, error) {
	if currentHash == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&accountModel{}).
		Where("account_id = ? AND refresh_token_hash = ?", accountID, currentHash).
		Updates(map[string]any{
			"refresh_token_hash": nil,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *accountRepository) SetResetToken(ctx context.Context, accountID uuid.UUID, tokenHash string, expiresAt, at time.Time) error {
	return r.updateTx(ctx, accountID, nil, map[string]any{
		"reset_token_hash":       tokenHash,
		"reset_token_expires_at": expiresAt,
		"updated_at":             at,
	})
}

func (r *accountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, at time.Time, events ...ports.OutboxEvent) (uuid.UUID, error) {
	if tokenHash == "" {
		return uuid.Nil, domain.ErrInvalidOrExpiredResetToken
	}
	var accountID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec accountModel
		if err := tx.Select("account_id").
			Where("reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, at).
			Take(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredResetToken
			}
			return err
		}
		res := tx.Model(&accountModel{}).
			Where("account_id = ? AND reset_token_hash = ?", rec.AccountID, tokenHash).
			Updates(map[string]any{
				"password_hash":          passwordHash,
				"reset_token_hash":       nil,
				"reset_token_expires_at": nil,
				"refresh_token_hash":     nil,
				"failed_attempts":        0,
				"locked_until":           nil,
				"updated_at":             at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrInvalidOrExpiredResetToken
		}
		accountID = rec.AccountID
		return enqueueTx(tx, events)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return accountID, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, at time.Time, events ...ports.OutboxEvent) error {
	return r.updateTx(ctx, accountID, events, map[string]any{
		"password_hash":          passwordHash,
		"reset_token_hash":       nil,
		"reset_token_expires_at": nil,
		"refresh_token_hash":     nil,
		"updated_at":             at,
	})
}

func (r *accountRepository) SetActive(ctx context.Context, accountID uuid.UUID, active bool, at time.Time, events ...ports.OutboxEvent) error {
	updates := map[string]any{
		"is_active":  active,
		"updated_at": at,
	}
	if !active {
		updates["refresh_token_hash"] = nil
	}
	return r.updateTx(ctx, accountID, events, updates)
}

// updateTx applies updates to one account and writes events in the same transaction.
func (r *accountRepository) updateTx(ctx context.Context, accountID uuid.UUID, events []ports.OutboxEvent, updates map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&accountModel{}).Where("account_id = ?", accountID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return enqueueTx(tx, events)
	})
}
