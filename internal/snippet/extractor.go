// Package snippet extracts fenced code blocks from normalized conversations.
package snippet

import (
	"regexp"
	"strings"

	"github.com/conductor-ai/recall/internal/model"
)

// Matches ```lang\n ... ``` fences; the language tag is optional and the
// body match is non-greedy so adjacent fences stay separate.
var fenceRe = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")

// Extract scans every message in the conversation for fenced code regions.
// Snippet order follows message order, then in-message match order.
func Extract(conv *model.Conversation) []model.CodeSnippet {
	var snippets []model.CodeSnippet

	for _, msg := range conv.Messages {
		for _, m := range fenceRe.FindAllStringSubmatch(msg.Content, -1) {
			lang := m[1]
			if lang == "" {
				lang = "unknown"
			}
			snippets = append(snippets, model.CodeSnippet{
				Code:         strings.TrimSpace(m[2]),
				Language:     lang,
				Context:      "From: " + conv.Title,
				SourceConvID: conv.ID,
				Platform:     conv.Platform,
			})
		}
	}

	return snippets
}
