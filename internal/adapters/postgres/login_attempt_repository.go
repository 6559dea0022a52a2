package postgres

import (
	"context"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type loginAttemptRepository struct {
	db *gorm.DB
}

func (r *loginAttemptRepository) Insert(ctx context.Context, attempt domain.LoginAttempt) error {
	rec := loginAttemptModel{
		AccountID:     attempt.AccountID,
		Email:         attempt.Email,
		AttemptAt:     attempt.AttemptAt,
		IPAddress:     nullableString(attempt.IPAddress),
		Status:        attempt.Status,
		FailureReason: attempt.FailureReason,
		UserAgent:     attempt.UserAgent,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *loginAttemptRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int, status string) ([]domain.LoginAttempt, error) {
	q := r.db.WithContext(ctx).Model(&loginAttemptModel{}).Where("account_id = ?", accountID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []loginAttemptModel
	if err := q.Order("attempt_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LoginAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLoginAttempt(row))
	}
	return out, nil
}

