package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Client to server events.
const (
	EventJoinConversation  = "joinConversation"
	EventLeaveConversation = "leaveConversation"
	EventTyping            = "typing"
	EventStopTyping        = "stopTyping"
)

// Server to client events.
const (
	EventNewMessage     = "newMessage"
	EventUserTyping     = "userTyping"
	EventUserStopTyping = "userStopTyping"
	EventError          = "error"
)

var errMissingConversation = errors.New("conversationId is required")

// Frame is the envelope of every text frame in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type typingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type newMessagePayload struct {
	Message        any    `json:"message"`
	ConversationID string `json:"conversationId"`
}

type errorPayload struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// conversationID accepts either a bare JSON string or {"conversationId": "..."}.
func (f Frame) conversationID() (string, error) {
	raw := bytes.TrimSpace(f.Payload)
	if len(raw) == 0 {
		return "", errMissingConversation
	}
	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", err
		}
	} else {
		var ref conversationRef
		if err := json.Unmarshal(raw, &ref); err != nil {
			return "", err
		}
		id = ref.ConversationID
	}
	if id == "" {
		return "", errMissingConversation
	}
	return id, nil
}

func encode(eventType string, payload any) []byte {
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte("null")
	}
	out, _ := json.Marshal(Frame{Type: eventType, Payload: body})
	return out
}
