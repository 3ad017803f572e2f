package model

import (
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Platform identifies the chat system an export came from.
type Platform string

const (
	PlatformChatGPT     Platform = "chatgpt"
	PlatformGemini      Platform = "gemini"
	PlatformGrok        Platform = "grok"
	PlatformAntigravity Platform = "antigravity"
)

// Message is a single normalized conversation turn.
// Messages are treated as immutable once created.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time // zero when the source carried no timestamp
	Metadata  map[string]any
}

// Conversation is the normalized unit every processor produces.
// ID is unique within a platform only; (ID, Platform) is the logical key.
type Conversation struct {
	ID        string
	Platform  Platform
	Title     string
	Messages  []Message // chronological
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any
}

// CodeSnippet is a fenced code block lifted out of a conversation.
// Derived data: owned by its source conversation, stored independently.
type CodeSnippet struct {
	Code         string
	Language     string // "unknown" when the fence carried no tag
	Context      string
	SourceConvID string
	Platform     Platform
	Metadata     map[string]any
}

// Text renders the conversation as the searchable document that gets
// chunked and embedded.
func (c *Conversation) Text() string {
	lines := []string{"Title: " + c.Title, "Platform: " + string(c.Platform), ""}
	for _, msg := range c.Messages {
		lines = append(lines, strings.ToUpper(string(msg.Role))+": "+msg.Content, "")
	}
	return strings.Join(lines, "\n")
}
