// Package kafka publishes committed ledger movements to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = 30 * time.Second
	headerEventType            = "event_type"
	eventTypeMovement          = "ledger.movement.committed"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher. Writes go through a circuit
// breaker so a broker outage fails fast instead of stalling every movement.
type Publisher struct {
	writer       MessageWriter
	breaker      *gobreaker.CircuitBreaker
	writeTimeout time.Duration
}

// NewWriter builds a kafka.Writer for topic. Messages with the same key land on the same partition.
func NewWriter(brokers []string, topic string, writeTimeout time.Duration) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: writeTimeout,
	}
}

// NewPublisher wraps writer with a circuit breaker.
func NewPublisher(writer MessageWriter, writeTimeout time.Duration, log zerolog.Logger) *Publisher {
	settings := gobreaker.Settings{
		Name:    "kafka-publisher",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &Publisher{
		writer:       writer,
		breaker:      gobreaker.NewCircuitBreaker(settings),
		writeTimeout: writeTimeout,
	}
}

// PublishMovement writes event keyed by its partition key.
func (p *Publisher) PublishMovement(ctx context.Context, event domain.MovementCommitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal movement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PartitionKey()),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(eventTypeMovement)},
			{Key: "event_id", Value: []byte(event.EventID.String())},
		},
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		writeCtx := ctx
		if p.writeTimeout > 0 {
			var cancel context.CancelFunc
			writeCtx, cancel = context.WithTimeout(ctx, p.writeTimeout)
			defer cancel()
		}
		return nil, p.writer.WriteMessages(writeCtx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("event publisher unavailable: %w", err)
	}
	if err != nil {
		return fmt.Errorf("write movement event: %w", err)
	}
	return nil
}

// State reports the breaker state.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
