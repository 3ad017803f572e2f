package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conductor-ai/recall/internal/model"
)

// WriteProcessed saves the normalized forms of a processing run as
// {platform}_conversations.json and {platform}_code_snippets.json.
// The snippet file is only written when snippets exist.
func WriteProcessed(dir string, platform model.Platform, convs []*model.Conversation, snippets []model.CodeSnippet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	convJSON := make([]model.ConversationJSON, len(convs))
	for i, c := range convs {
		convJSON[i] = c.JSON()
	}
	if err := writeJSON(filepath.Join(dir, string(platform)+"_conversations.json"), convJSON); err != nil {
		return fmt.Errorf("write conversations: %w", err)
	}

	if len(snippets) == 0 {
		return nil
	}
	snipJSON := make([]model.CodeSnippetJSON, len(snippets))
	for i, s := range snippets {
		snipJSON[i] = s.JSON()
	}
	if err := writeJSON(filepath.Join(dir, string(platform)+"_code_snippets.json"), snipJSON); err != nil {
		return fmt.Errorf("write code snippets: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
