package core

import (
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Sender tags who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one immutable entry of the conversation history.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a fresh id and creation time.
func NewMessage(sender Sender, text string, now time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: now,
	}
}

// Identity is the signed-in user as returned by the user collection, password stripped.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"username"`
	Avatar      string `json:"avatar,omitempty"`
}

// Initial returns the upper-cased first letter of the display name, or "U".
func (i *Identity) Initial() string {
	if i == nil || i.DisplayName == "" {
		return "U"
	}
	for _, r := range i.DisplayName {
		return string(unicode.ToUpper(r))
	}
	return "U"
}
