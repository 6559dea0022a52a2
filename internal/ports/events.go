package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventPublisher is the outbound domain-event publish port used by the outbox worker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}

// LoginEvent is the fire-and-forget notice sent to the real-time relay.
type LoginEvent struct {
	AccountID uuid.UUID `json:"accountId"`
	Role      string    `json:"role"`
	At        time.Time `json:"at"`
}

// LoginNotifier emits LoginEvent to the notification relay.
type LoginNotifier interface {
	NotifyLogin(ctx context.Context, event LoginEvent) error
}

// ResetTokenDelivery is the only place a plaintext reset token leaves the service.
type ResetTokenDelivery struct {
	AccountID uuid.UUID `json:"accountId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetTokenSender hands reset tokens to the external notification service.
type ResetTokenSender interface {
	SendResetToken(ctx context.Context, delivery ResetTokenDelivery) error
}
