package domain

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid returns true if the role can be persisted in a conversation.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Conversation is an ordered sequence of messages.
type Conversation struct {
	// ID uniquely identifies the conversation.
	ID string

	// CreatedAt is when the conversation was started.
	CreatedAt time.Time

	// Messages in insertion (display) order.
	Messages []Message
}

// LastMessages returns up to n trailing messages.
func (c *Conversation) LastMessages(n int) []Message {
	if n <= 0 || len(c.Messages) == 0 {
		return nil
	}
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// Message is a single append-only entry in a conversation.
// CreatedAt never decreases within a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time

	// ModelProvider and ModelName are set on assistant messages.
	ModelProvider string
	ModelName     string

	// Sources cited by an assistant message, snapshotted at write time.
	Sources []Source
}

// MessageInput holds the fields supplied when appending a message.
type MessageInput struct {
	Role          Role
	Content       string
	ModelProvider string
	ModelName     string
	Sources       []Source
}

// ConversationSummary is a lightweight listing entry.
type ConversationSummary struct {
	ID           string
	CreatedAt    time.Time
	MessageCount int
	Title        string
}

// TitleChars bounds a conversation title.
const TitleChars = 60

// ConversationTitle derives a title from the first user message.
func ConversationTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		title := []rune(strings.Join(strings.Fields(m.Content), " "))
		if len(title) > TitleChars {
			return string(title[:TitleChars]) + "..."
		}
		return string(title)
	}
	return ""
}
