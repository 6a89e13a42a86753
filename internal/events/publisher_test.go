package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skatespot-service/internal/config"
	"skatespot-service/internal/domain/spot"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, "spot.rating", zerolog.Nop())
	spotID := uuid.New()
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	err := p.Publish(t.Context(), RatingEvent{
		SpotID:     spotID,
		Status:     StatusRated,
		Rating:     &spot.Rating{SkateabilityScore: 4.2, Confidence: 0.9},
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, spotID.String(), string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "rated", decoded["status"])
	assert.Equal(t, spotID.String(), decoded["spot_id"])
	assert.InDelta(t, 4.2, decoded["rating"].(map[string]any)["skateability_score"], 1e-9)
	assert.NotContains(t, decoded, "reason")
}

func TestKafkaPublisher_PendingStampsTime(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, "spot.rating", zerolog.Nop())

	require.NoError(t, p.Publish(t.Context(), RatingEvent{
		SpotID: uuid.New(),
		Status: StatusPending,
		Reason: "Low confidence in AI analysis",
	}))
	require.Len(t, w.msgs, 1)
	assert.False(t, w.msgs[0].Time.IsZero())

	var decoded RatingEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Nil(t, decoded.Rating)
	assert.Equal(t, "Low confidence in AI analysis", decoded.Reason)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unavailable")}
	p := newKafkaPublisher(w, "spot.rating", zerolog.Nop())

	err := p.Publish(t.Context(), RatingEvent{SpotID: uuid.New(), Status: StatusRated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Contains(t, err.Error(), "spot.rating")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewPublisher_NoBrokersIsNoop(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Topic: "spot.rating"}, zerolog.Nop())
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.Publish(t.Context(), RatingEvent{}))
	assert.NoError(t, p.Close())
}

func TestNewPublisher_WithBrokers(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, zerolog.Nop())
	kp, ok := p.(*KafkaPublisher)
	require.True(t, ok)
	assert.Equal(t, "spot.rating", kp.topic)
	assert.NoError(t, kp.Close())
}
