package memory

import (
	"context"

	"github.com/campusrecords/campus-auth/internal/domain"
	"github.com/google/uuid"
)

type LoginAttemptRepository struct {
	store *Store
}

func (r *LoginAttemptRepository) Insert(_ context.Context, attempt domain.LoginAttempt) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attemptID++
	attempt.ID = s.attemptID
	s.attempts = append(s.attempts, attempt)
	return nil
}

// ListByAccount returns newest attempts first.
func (r *LoginAttemptRepository) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int, status string) ([]domain.LoginAttempt, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LoginAttempt, 0)
	skipped := 0
	for i := len(s.attempts) - 1; i >= 0; i-- {
		a := s.attempts[i]
		if a.AccountID == nil || *a.AccountID != accountID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, a)
	}
	return out, nil
}
