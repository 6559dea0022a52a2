package memory

import (
	"context"
	"sync"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

// Store is a process-local backing store for accounts, login attempts and
// outbox records. One mutex guards all three so account writes and their
// outbox events commit together.
type Store struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]domain.Account
	byEmail   map[string]uuid.UUID
	attempts  []domain.LoginAttempt
	attemptID int64
	outbox    []ports.OutboxRecord
}

func NewStore() *Store {
	return &Store{
		accounts: map[uuid.UUID]domain.Account{},
		byEmail:  map[string]uuid.UUID{},
	}
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

func (s *Store) LoginAttempts() *LoginAttemptRepository {
	return &LoginAttemptRepository{store: s}
}

func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// enqueueLocked appends events; callers hold s.mu.
func (s *Store) enqueueLocked(events []ports.OutboxEvent) {
	for _, e := range events {
		id := e.EventID
		if id == uuid.Nil {
			id = uuid.New()
		}
		s.outbox = append(s.outbox, ports.OutboxRecord{
			OutboxID:     id,
			EventType:    e.EventType,
			PartitionKey: e.PartitionKey,
			Payload:      append([]byte(nil), e.Payload...),
			CreatedAt:    e.OccurredAt,
		})
	}
}
