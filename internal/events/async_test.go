package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stalledPublisher holds every event until released or its context ends.
type stalledPublisher struct {
	release chan struct{}

	mu        sync.Mutex
	delivered []string
	closed    bool
}

func (s *stalledPublisher) Publish(ctx context.Context, e Event) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, e.AggregateID)
	return nil
}

func (s *stalledPublisher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestAsyncPublisherDoesNotWaitForBroker(t *testing.T) {
	next := &stalledPublisher{release: make(chan struct{})}
	p := NewAsyncPublisher(next, 8, zap.NewNop())

	start := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Publish(context.Background(), New(TypeMessageSent, id, nil)))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(next.release)
	require.NoError(t, p.Close())
	assert.Equal(t, []string{"a", "b", "c"}, next.delivered)
	assert.True(t, next.closed)
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	next := &stalledPublisher{release: make(chan struct{})}
	p := NewAsyncPublisher(next, 1, zap.NewNop())
	t.Cleanup(func() {
		close(next.release)
		_ = p.Close()
	})

	var full bool
	for i := 0; i < 10 && !full; i++ {
		full = p.Publish(context.Background(), New(TypeMessageSent, "x", nil)) == ErrQueueFull
	}
	assert.True(t, full)
}

func TestAsyncPublisherRejectsAfterClose(t *testing.T) {
	p := NewAsyncPublisher(NopPublisher{}, 1, zap.NewNop())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), New(TypeListingSold, "x", nil)), ErrPublisherClosed)
	assert.NoError(t, p.Close())
}

func TestAsyncPublisherOverFailingKafka(t *testing.T) {
	w := &fakeWriter{failures: -1}
	kp := newKafkaPublisher(w, KafkaConfig{TopicChat: "chat", MaxElapsed: 2 * time.Second}, zap.NewNop())
	p := NewAsyncPublisher(kp, 16, zap.NewNop())

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, p.Publish(context.Background(), New(TypeMessageSent, "c", nil)))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
