// Package chat holds the edit conversation and decides which revision an edit
// instruction operates on.
package chat

import (
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/typeid"
)

// SoftFailureText is shown when the generation service returns neither text
// nor an image.
const SoftFailureText = "Sorry, I couldn't process that request. Please try again."

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one chat turn. RevisionID is set when a model reply produced a
// new scene revision.
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	RevisionID string    `json:"revisionId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Conversation is an append-only message log.
type Conversation struct {
	messages []Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message and returns it.
func (c *Conversation) Append(role Role, text, revisionID string) Message {
	m := Message{
		ID:         typeid.NewMessageID(),
		Role:       role,
		Text:       text,
		RevisionID: revisionID,
		CreatedAt:  time.Now().UTC(),
	}
	c.messages = append(c.messages, m)
	return m
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

func (c *Conversation) Len() int { return len(c.messages) }

func (c *Conversation) Reset() {
	c.messages = nil
}

// Restore replaces the log with persisted messages.
func (c *Conversation) Restore(msgs []Message) {
	c.messages = append([]Message(nil), msgs...)
}
