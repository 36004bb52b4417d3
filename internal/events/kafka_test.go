package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return errors.New("broker down")
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishRoutesByType(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, KafkaConfig{TopicChat: "chat", TopicStore: "store"}, zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), New(TypeMessageSent, "conv-1", map[string]string{"content": "hi"})))
	require.NoError(t, p.Publish(context.Background(), New(TypeListingSold, "listing-1", nil)))

	require.Len(t, w.written, 2)
	assert.Equal(t, "chat", w.written[0].Topic)
	assert.Equal(t, []byte("conv-1"), w.written[0].Key)
	assert.Equal(t, "store", w.written[1].Topic)

	var e Event
	require.NoError(t, json.Unmarshal(w.written[0].Value, &e))
	assert.Equal(t, TypeMessageSent, e.Type)
	assert.NotEmpty(t, e.ID)
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2}
	p := newKafkaPublisher(w, KafkaConfig{TopicChat: "chat", MaxElapsed: 2 * time.Second}, zap.NewNop())

	require.NoError(t, p.Publish(context.Background(), New(TypeMessageSent, "c", nil)))
	assert.Equal(t, 3, w.calls)
	assert.Len(t, w.written, 1)
}

func TestPublishTripsBreaker(t *testing.T) {
	w := &fakeWriter{failures: -1}
	p := newKafkaPublisher(w, KafkaConfig{TopicChat: "chat", MaxElapsed: time.Millisecond}, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.Error(t, p.Publish(context.Background(), New(TypeMessageSent, "c", nil)))
	}
	calls := w.calls
	err := p.Publish(context.Background(), New(TypeMessageSent, "c", nil))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, calls, w.calls)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeListingCreated, "x", nil)))
	assert.NoError(t, p.Close())
}
