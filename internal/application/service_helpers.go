package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

const serviceName = "campus-auth"

// recordAttempt stores login outcomes for audit; storage errors are logged, never surfaced.
func (s *Service) recordAttempt(ctx context.Context, accountID *uuid.UUID, email string, meta RequestMeta, status, reason string) {
	if s.loginAttempts == nil {
		return
	}
	if err := s.loginAttempts.Insert(ctx, domain.LoginAttempt{
		AccountID:     accountID,
		Email:         email,
		AttemptAt:     s.nowFn(),
		IPAddress:     meta.IPAddress,
		Status:        status,
		FailureReason: reason,
		UserAgent:     meta.UserAgent,
	}); err != nil {
		slog.Default().WarnContext(ctx, "failed to persist login attempt",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "record_login_attempt",
			"outcome", "failure",
			"reason", reason,
			"error", err,
		)
	}
}

// newEvent builds an outbox event keyed by account so per-account ordering holds in Kafka.
func (s *Service) newEvent(eventType string, accountID uuid.UUID, payload map[string]any) ports.OutboxEvent {
	now := s.nowFn()
	payload["accountId"] = accountID.String()
	payload["occurredAt"] = now
	raw, _ := json.Marshal(payload)
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: accountID.String(),
		Payload:      raw,
		OccurredAt:   now,
	}
}

// retryOnce re-runs fn a single time when it fails with a store-level error.
// Domain errors are returned immediately.
func retryOnce(ctx context.Context, operation string, fn func() error) error {
	err := fn()
	if err == nil || isDomainError(err) || ctx.Err() != nil {
		return err
	}
	slog.Default().WarnContext(ctx, "transient store error; retrying once",
		"service", serviceName,
		"module", "application",
		"layer", "application",
		"operation", operation,
		"outcome", "retry",
		"error", err,
	)
	return fn()
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrEmailTaken,
		domain.ErrInvalidOrExpiredResetToken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// hashToken stores one-way token fingerprints instead of raw secrets.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
