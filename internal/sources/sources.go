// Package sources turns platform-specific chat exports into the normalized
// conversation model. Each processor tolerates malformed units: a record,
// message, or file that fails to parse is logged and skipped, never fatal.
package sources

import (
	"log/slog"
	"os"
	"strings"

	"github.com/conductor-ai/recall/internal/model"
	"github.com/conductor-ai/recall/internal/snippet"
)

// Result is what one processor run produces. Processors return it instead
// of accumulating shared state; the orchestrator aggregates explicitly.
type Result struct {
	Conversations []*model.Conversation
	Snippets      []model.CodeSnippet
}

// Processor turns one export (file, archive, or directory) into conversations.
type Processor interface {
	Platform() model.Platform
	Process(path string) (Result, error)
}

// collect appends a conversation and its extracted snippets to the result.
// Conversations with no messages are discarded, never persisted.
func (r *Result) collect(conv *model.Conversation) {
	if conv == nil || len(conv.Messages) == 0 {
		return
	}
	r.Conversations = append(r.Conversations, conv)
	r.Snippets = append(r.Snippets, snippet.Extract(conv)...)
}

// pathMissing reports (and logs) a configured export path that does not
// exist. Missing inputs yield empty results rather than errors so one bad
// source never aborts a multi-source run.
func pathMissing(path string, logger *slog.Logger) bool {
	if _, err := os.Stat(path); err != nil {
		logger.Warn("export path not found", "path", path)
		return true
	}
	return false
}

// skipFilename filters manifest-style sidecar files out of export globs.
func skipFilename(name string, fragments ...string) bool {
	lower := strings.ToLower(name)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

const defaultTitle = "Untitled Conversation"

// truncate caps a string at n bytes, used for titles lifted from content.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
