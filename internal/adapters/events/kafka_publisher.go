package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the adapters use.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func newKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
		WriteTimeout:           10 * time.Second,
	}
}

// KafkaPublisher relays outbox events; the topic defaults to the event type.
type KafkaPublisher struct {
	writer       messageWriter
	topicByEvent map[string]string
	nowFn        func() time.Time
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return newKafkaPublisherWithWriter(newKafkaWriter(brokers), topicByEvent), nil
}

func newKafkaPublisherWithWriter(writer messageWriter, topicByEvent map[string]string) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       writer,
		topicByEvent: topicByEvent,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error {
	topic := eventType
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		topic = mapped
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
		Time: p.nowFn(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
