package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoListingKey is the listing key of a conversation not tied to a listing.
const NoListingKey = "none"

// LastMessage is the denormalized snapshot shown in conversation lists.
type LastMessage struct {
	Content   string             `bson:"content" json:"content"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

type Conversation struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants   []primitive.ObjectID `bson:"participants" json:"participants"`
	ParticipantKey string               `bson:"participant_key" json:"-"`
	Listing        *primitive.ObjectID  `bson:"listing,omitempty" json:"listing,omitempty"`
	ListingKey     string               `bson:"listing_key" json:"-"`
	LastMessage    *LastMessage         `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	CreatedAt      time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updatedAt"`
}

// ParticipantKey is order independent: {a,b} and {b,a} yield the same key.
func ParticipantKey(a, b primitive.ObjectID) string {
	ids := []string{a.Hex(), b.Hex()}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

func ListingKey(listing *primitive.ObjectID) string {
	if listing == nil || listing.IsZero() {
		return NoListingKey
	}
	return listing.Hex()
}

func (c *Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Others returns every participant except userID.
func (c *Conversation) Others(userID primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			out = append(out, p)
		}
	}
	return out
}

// ConversationView is a conversation with participants and listing expanded.
type ConversationView struct {
	ID           primitive.ObjectID `json:"id"`
	Participants []UserSummary      `json:"participants"`
	Listing      *ListingSummary    `json:"listing"`
	LastMessage  *LastMessage       `json:"lastMessage"`
	UnreadCount  int64              `json:"unreadCount"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}
