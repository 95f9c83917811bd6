package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/transferpro-backend/internal/domain"
)

// TransferMessage is the payload published for every lifecycle event.
type TransferMessage struct {
	EventID      string `json:"event_id"`
	TransferID   string `json:"transfer_id"`
	UserID       string `json:"user_id"`
	EventType    string `json:"event_type"`
	Status       string `json:"status"`
	Step         string `json:"step,omitempty"`
	FromCurrency string `json:"from_currency"`
	ToCurrency   string `json:"to_currency"`
	TotalAmount  string `json:"total_amount"`
	Message      string `json:"message,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}

func NewTransferMessage(t *domain.Transfer, e *domain.TransferEvent) TransferMessage {
	return TransferMessage{
		EventID:      e.ID.String(),
		TransferID:   t.ID.String(),
		UserID:       t.UserID.String(),
		EventType:    string(e.EventType),
		Status:       string(t.Status),
		Step:         string(e.Step),
		FromCurrency: string(t.FromCurrency),
		ToCurrency:   string(t.ToCurrency),
		TotalAmount:  t.TotalAmount.StringFixed(domain.MoneyScale),
		Message:      e.Message,
		OccurredAt:   e.CreatedAt.Format(time.RFC3339Nano),
	}
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes lifecycle events to a topic keyed by transfer id, so
// the events of one transfer stay ordered within a partition.
type KafkaPublisher struct {
	writer kafkaWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: writeTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("transfer event write failed", "topic", topic, "count", len(messages), "error", err)
			}
		},
	}
	return newKafkaPublisher(writer, topic, logger)
}

func newKafkaPublisher(w kafkaWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg TransferMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.TransferID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("Publish: %s: %w", p.topic, err)
	}

	p.logger.Debug("transfer event published", "topic", p.topic, "transfer_id", msg.TransferID, "event_type", msg.EventType)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}
	return nil
}

// LogPublisher records events in the service log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, msg TransferMessage) error {
	p.logger.Info("transfer event",
		"transfer_id", msg.TransferID,
		"event_type", msg.EventType,
		"status", msg.Status,
		"step", msg.Step,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
