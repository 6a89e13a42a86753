package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"skatespot-service/internal/config"
	"skatespot-service/internal/domain/spot"
)

const (
	StatusRated   = "rated"
	StatusPending = "pending"
)

// RatingEvent is published after every evaluation so realtime subscribers can refresh a spot.
type RatingEvent struct {
	SpotID     uuid.UUID    `json:"spot_id"`
	Status     string       `json:"status"`
	Rating     *spot.Rating `json:"rating,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	UploadedBy *uuid.UUID   `json:"uploaded_by,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event RatingEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    zerolog.Logger
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when no brokers are configured.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka brokers not configured, rating events disabled")
		return Noop{}
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = "spot.rating"
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, topic, log)
}

func newKafkaPublisher(w messageWriter, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		log:    log.With().Str("component", "rating_events").Logger(),
	}
}

// Publish writes the event keyed by spot id, so events of one spot stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event RatingEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode rating event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.SpotID.String()),
		Value: value,
		Time:  event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish rating event to %s: %w", p.topic, err)
	}
	p.log.Debug().
		Str("spot_id", event.SpotID.String()).
		Str("status", event.Status).
		Msg("rating event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) Publish(context.Context, RatingEvent) error { return nil }

func (Noop) Close() error { return nil }
