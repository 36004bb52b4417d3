package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers    []string
	TopicChat  string
	TopicStore string
	// MaxElapsed bounds the retry loop of a single publish.
	MaxElapsed time.Duration
}

// KafkaPublisher routes chat.* events to the chat topic and everything else
// to the store topic. Writes retry with exponential backoff behind a circuit
// breaker so a dead broker fails fast instead of stalling requests.
type KafkaPublisher struct {
	writer  messageWriter
	cfg     KafkaConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return newKafkaPublisher(w, cfg, logger)
}

func newKafkaPublisher(w messageWriter, cfg KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 3 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "kafka-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &KafkaPublisher{writer: w, cfg: cfg, breaker: cb, logger: logger}
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	if strings.HasPrefix(eventType, "chat.") {
		return p.cfg.TopicChat
	}
	return p.cfg.TopicStore
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Topic: p.topicFor(e.Type),
		Key:   []byte(e.AggregateID),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}

	_, err = p.breaker.Execute(func() (interface{}, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 100 * time.Millisecond
		b.MaxElapsedTime = p.cfg.MaxElapsed
		return nil, backoff.Retry(func() error {
			return p.writer.WriteMessages(ctx, msg)
		}, backoff.WithContext(b, ctx))
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
