package model

import "time"

// Wire shapes for the processed-data export files. Timestamps are RFC 3339,
// enums are their lowercase string values, absent instants are null.

type MessageJSON struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp *string        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

type ConversationJSON struct {
	ConversationID string         `json:"conversation_id"`
	Platform       string         `json:"platform"`
	Title          string         `json:"title"`
	Messages       []MessageJSON  `json:"messages"`
	CreatedAt      *string        `json:"created_at"`
	UpdatedAt      *string        `json:"updated_at"`
	Metadata       map[string]any `json:"metadata"`
}

type CodeSnippetJSON struct {
	Code                 string         `json:"code"`
	Language             string         `json:"language"`
	Context              string         `json:"context"`
	SourceConversationID string         `json:"source_conversation_id"`
	Platform             string         `json:"platform"`
	Metadata             map[string]any `json:"metadata"`
}

func (m Message) JSON() MessageJSON {
	return MessageJSON{
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: isoOrNil(m.Timestamp),
		Metadata:  orEmpty(m.Metadata),
	}
}

func (c *Conversation) JSON() ConversationJSON {
	msgs := make([]MessageJSON, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = m.JSON()
	}
	return ConversationJSON{
		ConversationID: c.ID,
		Platform:       string(c.Platform),
		Title:          c.Title,
		Messages:       msgs,
		CreatedAt:      isoOrNil(c.CreatedAt),
		UpdatedAt:      isoOrNil(c.UpdatedAt),
		Metadata:       orEmpty(c.Metadata),
	}
}

func (s CodeSnippet) JSON() CodeSnippetJSON {
	return CodeSnippetJSON{
		Code:                 s.Code,
		Language:             s.Language,
		Context:              s.Context,
		SourceConversationID: s.SourceConvID,
		Platform:             string(s.Platform),
		Metadata:             orEmpty(s.Metadata),
	}
}

func isoOrNil(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
