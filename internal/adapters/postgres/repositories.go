package postgres

import (
	"context"

	"github.com/campusrecords/campus-auth/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Accounts      ports.AccountRepository
	LoginAttempts ports.LoginAttemptRepository
	Outbox        ports.OutboxRepository
	Health        ports.HealthChecker
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Accounts:      &accountRepository{db: db},
		LoginAttempts: &loginAttemptRepository{db: db},
		Outbox:        &outboxRepository{db: db},
		Health:        healthChecker{db: db},
	}
}

type healthChecker struct {
	db *gorm.DB
}

func (h healthChecker) Ping(ctx context.Context) error {
	return Ping(ctx, h.db)
}
