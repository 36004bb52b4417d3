package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeConversationCreated = "chat.conversation.created"
	TypeConversationRead    = "chat.conversation.read"
	TypeMessageSent         = "chat.message.sent"
	TypeListingCreated      = "listing.created"
	TypeListingSold         = "listing.sold"
	TypeListingDeleted      = "listing.deleted"
)

type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregateId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Data        any       `json:"data,omitempty"`
}

func New(eventType, aggregateID string, data any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
