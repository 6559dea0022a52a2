package postgres

import (
	"errors"
	"strings"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func toDomainAccount(row accountModel) domain.Account {
	return domain.Account{
		AccountID:           row.AccountID,
		Email:               row.Email,
		PasswordHash:        row.PasswordHash,
		FirstName:           row.FirstName,
		LastName:            row.LastName,
		Role:                domain.Role(row.Role),
		IsActive:            row.IsActive,
		FailedAttempts:      row.FailedAttempts,
		LockedUntil:         row.LockedUntil,
		RefreshTokenHash:    derefString(row.RefreshTokenHash),
		ResetTokenHash:      derefString(row.ResetTokenHash),
		ResetTokenExpiresAt: row.ResetTokenExpiresAt,
		LastLoginAt:         row.LastLoginAt,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func fromDomainAccount(a domain.Account) accountModel {
	return accountModel{
		AccountID:           a.AccountID,
		Email:               a.Email,
		PasswordHash:        a.PasswordHash,
		FirstName:           a.FirstName,
		LastName:            a.LastName,
		Role:                a.Role.String(),
		IsActive:            a.IsActive,
		FailedAttempts:      a.FailedAttempts,
		LockedUntil:         a.LockedUntil,
		RefreshTokenHash:    nullableString(a.RefreshTokenHash),
		ResetTokenHash:      nullableString(a.ResetTokenHash),
		ResetTokenExpiresAt: a.ResetTokenExpiresAt,
		LastLoginAt:         a.LastLoginAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func toDomainLoginAttempt(row loginAttemptModel) domain.LoginAttempt {
	return domain.LoginAttempt{
		ID:            row.ID,
		AccountID:     row.AccountID,
		Email:         row.Email,
		AttemptAt:     row.AttemptAt,
		IPAddress:     derefString(row.IPAddress),
		Status:        row.Status,
		FailureReason: row.FailureReason,
		UserAgent:     row.UserAgent,
	}
}

func toOutboxModel(event ports.OutboxEvent) authOutboxModel {
	payload := string(event.Payload)
	if payload == "" {
		payload = "{}"
	}
	return authOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      payload,
		CreatedAt:    event.OccurredAt,
	}
}

func toOutboxRecord(row authOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:       row.OutboxID,
		EventType:      row.EventType,
		PartitionKey:   row.PartitionKey,
		Payload:        []byte(row.Payload),
		RetryCount:     row.RetryCount,
		LastError:      row.LastError,
		CreatedAt:      row.CreatedAt,
		PublishedAt:    row.PublishedAt,
		LastErrorAt:    row.LastErrorAt,
		ClaimToken:     row.ClaimToken,
		ClaimUntil:     row.ClaimUntil,
		DeadLetteredAt: row.DeadLetteredAt,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// isUniqueViolation matches both gorm's translated error and a raw pgconn error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
