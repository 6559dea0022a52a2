package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusrecords/campus-auth/internal/ports"
	"github.com/segmentio/kafka-go"
)

// KafkaResetTokenSender hands reset tokens to the notification service over a
// dedicated topic. The message is written synchronously and is the only copy
// of the plaintext token outside the requester's inbox.
type KafkaResetTokenSender struct {
	writer messageWriter
	topic  string
}

func NewKafkaResetTokenSender(brokers []string, topic string) (*KafkaResetTokenSender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka reset sender requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka reset sender requires a topic")
	}
	return &KafkaResetTokenSender{writer: newKafkaWriter(brokers), topic: topic}, nil
}

func (s *KafkaResetTokenSender) SendResetToken(ctx context.Context, delivery ports.ResetTokenDelivery) error {
	payload, err := json.Marshal(delivery)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(delivery.AccountID.String()),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (s *KafkaResetTokenSender) Close() error {
	return s.writer.Close()
}

// LoggingResetTokenSender is the local fallback. It records that a token was
// issued but never the token itself.
type LoggingResetTokenSender struct {
	logger *slog.Logger
}

func NewLoggingResetTokenSender(logger *slog.Logger) *LoggingResetTokenSender {
	return &LoggingResetTokenSender{logger: logger}
}

func (s *LoggingResetTokenSender) SendResetToken(ctx context.Context, delivery ports.ResetTokenDelivery) error {
	s.logger.InfoContext(ctx, "password reset token issued; no delivery channel configured",
		"module", "events.reset_delivery",
		"layer", "adapter",
		"operation", "send_reset_token",
		"outcome", "skipped",
		"account_id", delivery.AccountID,
		"expires_at", delivery.ExpiresAt,
	)
	return nil
}
