package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull       = errors.New("event queue full")
	ErrPublisherClosed = errors.New("event publisher closed")
)

const (
	defaultQueueSize    = 1024
	defaultDeliverLimit = 10 * time.Second
)

// AsyncPublisher queues events and hands them to next from a single
// goroutine, so callers never wait on the broker. Order is kept.
type AsyncPublisher struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsyncPublisher(next Publisher, size int, logger *zap.Logger) *AsyncPublisher {
	if size <= 0 {
		size = defaultQueueSize
	}
	if next == nil {
		next = NopPublisher{}
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan Event, size),
		timeout: defaultDeliverLimit,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish never blocks. The request context is not carried over since it
// ends before delivery does.
func (p *AsyncPublisher) Publish(_ context.Context, e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for e := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, e); err != nil {
			p.logger.Warn("event delivery failed",
				zap.String("type", e.Type),
				zap.String("aggregate_id", e.AggregateID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close flushes what is queued, then closes next.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.next.Close()
}
