package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	AccountID           uuid.UUID  `gorm:"column:account_id;type:uuid;primaryKey"`
	Email               string     `gorm:"column:email;uniqueIndex:ux_accounts_email"`
	PasswordHash        string     `gorm:"column:password_hash"`
	FirstName           string     `gorm:"column:first_name"`
	LastName            string     `gorm:"column:last_name"`
	Role                string     `gorm:"column:role"`
	IsActive            bool       `gorm:"column:is_active"`
	FailedAttempts      int        `gorm:"column:failed_attempts"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	RefreshTokenHash    *string    `gorm:"column:refresh_token_hash"`
	ResetTokenHash      *string    `gorm:"column:reset_token_hash;index"`
	ResetTokenExpiresAt *time.Time `gorm:"column:reset_token_expires_at"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type loginAttemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID     *uuid.UUID `gorm:"column:account_id;type:uuid"`
	Email         string     `gorm:"column:email"`
	AttemptAt     time.Time  `gorm:"column:attempt_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	Status        string     `gorm:"column:status"`
	FailureReason string     `gorm:"column:failure_reason"`
	UserAgent     string     `gorm:"column:user_agent"`
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type authOutboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (authOutboxModel) TableName() string { return "auth_outbox" }
