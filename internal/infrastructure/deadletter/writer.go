package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
)

// ErrDisabled is returned by New when dead-lettering is switched off.
var ErrDisabled = errors.New("deadletter: disabled in configuration")

// Logger is the logging surface used for asynchronous write failures.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Rejection describes a discovery message the collector refused.
type Rejection struct {
	Topic      string
	Payload    []byte
	Reason     error
	ReceivedAt time.Time
}

// envelope is the JSON value written to Kafka. The original payload is kept
// as a string because it is frequently not valid JSON.
type envelope struct {
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Reason     string    `json:"reason"`
	ReceivedAt time.Time `json:"received_at"`
}

// Writer publishes rejections to a Kafka topic.
type Writer struct {
	w      messageWriter
	topic  string
	logger Logger
}

// New creates an asynchronous Kafka writer for cfg.Topic.
func New(cfg config.DeadLetterConfig, logger Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("deadletter: brokers and topic are required")
	}
	if logger == nil {
		logger = noopLogger{}
	}

	w := &Writer{topic: cfg.Topic, logger: logger}
	w.w = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    10,
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   w.completion,
	}
	return w, nil
}

func (w *Writer) completion(messages []kafka.Message, err error) {
	if err != nil {
		w.logger.Warn("dead-letter write failed", "topic", w.topic, "messages", len(messages), "error", err)
	}
}

// Send queues a rejection. Messages are keyed by discovery topic so all
// rejections for one entity land on the same partition.
func (w *Writer) Send(ctx context.Context, r Rejection) error {
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now().UTC()
	}
	reason := "unknown"
	if r.Reason != nil {
		reason = r.Reason.Error()
	}

	value, err := json.Marshal(envelope{
		Topic:      r.Topic,
		Payload:    string(r.Payload),
		Reason:     reason,
		ReceivedAt: r.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("deadletter: encoding envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(r.Topic),
		Value: value,
		Time:  r.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(reason)},
		},
	}
	if err := w.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("deadletter: %w", err)
	}
	return nil
}

// Reject is Send for a single refused discovery message.
func (w *Writer) Reject(ctx context.Context, topic string, payload []byte, reason error) error {
	return w.Send(ctx, Rejection{Topic: topic, Payload: payload, Reason: reason})
}

// Close flushes queued messages and closes the writer.
func (w *Writer) Close() error {
	if w == nil || w.w == nil {
		return nil
	}
	return w.w.Close()
}
