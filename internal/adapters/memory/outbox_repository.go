package memory

import (
	"context"
	"time"

	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/google/uuid"
)

type OutboxRepository struct {
	store *Store
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked([]ports.OutboxEvent{event})
	return nil
}

func (r *OutboxRepository) ClaimUnpublished(_ context.Context, limit int, claimToken string, now, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ports.OutboxRecord, 0, limit)
	for i := range s.outbox {
		if limit > 0 && len(out) >= limit {
			break
		}
		rec := &s.outbox[i]
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && rec.ClaimUntil.After(now) {
			continue
		}
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		out = append(out, *rec)
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.PublishedAt = &at
	})
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
	})
}

func (r *OutboxRepository) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return r.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.DeadLetteredAt = &at
	})
}

// Pending returns records that are neither published nor dead-lettered.
func (r *OutboxRepository) Pending() []ports.OutboxRecord {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.OutboxRecord, 0)
	for _, rec := range s.outbox {
		if rec.PublishedAt == nil && rec.DeadLetteredAt == nil {
			out = append(out, rec)
		}
	}
	return out
}

func (r *OutboxRepository) update(outboxID uuid.UUID, claimToken string, fn func(*ports.OutboxRecord)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		rec := &s.outbox[i]
		if rec.OutboxID != outboxID {
			continue
		}
		if rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
			return nil
		}
		fn(rec)
		rec.ClaimToken = nil
		rec.ClaimUntil = nil
		return nil
	}
	return nil
}
