package ports

import (
	"context"
	"time"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository persists the authentication projection of user records.
// Mutations that must serialize against each other (refresh rotation,
// password change, reset consumption) are single conditional updates on the
// account row. Events passed to a mutation are written in the same transaction.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account, events ...OutboxEvent) (domain.Account, error)
	GetByID(ctx context.Context, accountID uuid.UUID) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (domain.Account, error)

	// UpdateLockout writes the counter and lock as computed by the caller.
	UpdateLockout(ctx context.Context, accountID uuid.UUID, state domain.LockoutState, at time.Time, events ...OutboxEvent) error
	// RecordLoginSuccess resets lockout, stores the new refresh fingerprint and stamps last login.
	RecordLoginSuccess(ctx context.Context, accountID uuid.UUID, refreshTokenHash string, at time.Time) error
	// RotateRefreshToken swaps the stored fingerprint only if it still equals currentHash.
	RotateRefreshToken(ctx context.Context, accountID uuid.UUID, currentHash, nextHash string, at time.Time) (bool, error)
	// ClearRefreshToken removes the stored fingerprint if it equals currentHash.
	ClearRefreshToken(ctx context.Context, accountID uuid.UUID, currentHash string, at time.Time) (bool, error)

	SetResetToken(ctx context.Context, accountID uuid.UUID, tokenHash string, expiresAt, at time.Time) error
	// ConsumeResetToken applies passwordHash only while tokenHash is pending and unexpired at `at`.
	// It clears the reset token, the refresh token and lockout state.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, at time.Time, events ...OutboxEvent) (uuid.UUID, error)
	// UpdatePassword supersedes the hash and clears reset and refresh tokens.
	UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, at time.Time, events ...OutboxEvent) error
	// SetActive toggles login eligibility; deactivation also clears the refresh token.
	SetActive(ctx context.Context, accountID uuid.UUID, active bool, at time.Time, events ...OutboxEvent) error
}

// LoginAttemptRepository stores login outcomes used by audit and history endpoints.
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt domain.LoginAttempt) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int, status string) ([]domain.LoginAttempt, error)
}

// OutboxEvent is the write-side event payload prior to storage.
type OutboxEvent struct {
	EventID      uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	OccurredAt   time.Time
}

// OutboxRecord represents durable outbox state, including retry/error metadata.
type OutboxRecord struct {
	OutboxID       uuid.UUID
	EventType      string
	PartitionKey   string
	Payload        []byte
	RetryCount     int
	LastError      *string
	CreatedAt      time.Time
	PublishedAt    *time.Time
	LastErrorAt    *time.Time
	ClaimToken     *string
	ClaimUntil     *time.Time
	DeadLetteredAt *time.Time
}

// OutboxRepository controls the publish-retry workflow for domain events.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, now, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error
}

// HealthChecker is implemented by stores that can report readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
