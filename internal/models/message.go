package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	Sender         primitive.ObjectID `bson:"sender" json:"sender"`
	Content        string             `bson:"content" json:"content"`
	Read           bool               `bson:"read" json:"read"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

// MessageView is a message with its sender expanded.
type MessageView struct {
	ID             primitive.ObjectID `json:"id"`
	ConversationID primitive.ObjectID `json:"conversationId"`
	Sender         UserSummary        `json:"sender"`
	Content        string             `json:"content"`
	Read           bool               `json:"read"`
	CreatedAt      time.Time          `json:"createdAt"`
}

type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}
