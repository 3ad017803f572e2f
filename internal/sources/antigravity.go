package sources

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conductor-ai/recall/internal/model"
)

// Antigravity keeps one directory per conversation, named with a UUID.
// History is reconstructed from the system log directory (overview.txt plus
// task_*.txt files) and the markdown artifacts the agent wrote.

const (
	userRequestMarker = "USER_REQUEST:"
	assistantMarker   = "ASSISTANT:"
)

type Antigravity struct {
	logger *slog.Logger
}

func NewAntigravity(logger *slog.Logger) *Antigravity {
	return &Antigravity{logger: logger}
}

func (p *Antigravity) Platform() model.Platform { return model.PlatformAntigravity }

// Process scans the brain directory for conversation subdirectories.
// Directory names longer than 30 chars stand in for UUID-shaped names.
func (p *Antigravity) Process(path string) (Result, error) {
	var res Result
	if pathMissing(path, p.logger) {
		return res, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return res, fmt.Errorf("read dir: %w", err)
	}

	var convDirs []string
	for _, e := range entries {
		if e.IsDir() && len(e.Name()) > 30 {
			convDirs = append(convDirs, filepath.Join(path, e.Name()))
		}
	}
	p.logger.Info("antigravity conversation dirs found", "count", len(convDirs))

	for _, dir := range convDirs {
		conv, err := p.parseConversationDir(dir)
		if err != nil {
			p.logger.Warn("skipping conversation dir", "dir", filepath.Base(dir), "error", err)
			continue
		}
		if conv != nil && len(conv.Messages) == 0 {
			p.logger.Warn("no messages reconstructed", "dir", filepath.Base(dir))
			continue
		}
		res.collect(conv)
	}

	p.logger.Info("antigravity export processed",
		"conversations", len(res.Conversations),
		"code_snippets", len(res.Snippets),
	)
	return res, nil
}

func (p *Antigravity) parseConversationDir(dir string) (*model.Conversation, error) {
	title := defaultTitle
	for _, name := range []string{"task.md", "implementation_plan.md"} {
		if t := firstHeading(filepath.Join(dir, name)); t != "" {
			title = truncate(t, 100)
			break
		}
	}

	var msgs []model.Message

	logsDir := filepath.Join(dir, ".system_generated", "logs")
	if info, err := os.Stat(logsDir); err == nil && info.IsDir() {
		msgs = append(msgs, p.parseOverview(filepath.Join(logsDir, "overview.txt"))...)
		msgs = append(msgs, p.parseTaskLogs(logsDir)...)
	}

	for _, name := range []string{"task.md", "implementation_plan.md", "walkthrough.md"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || strings.TrimSpace(string(data)) == "" {
			continue
		}
		msgs = append(msgs, model.Message{
			Role:    model.RoleAssistant,
			Content: "[Artifact: " + name + "]\n\n" + string(data),
			Metadata: map[string]any{
				"artifact": true,
				"filename": name,
			},
		})
	}

	conv := &model.Conversation{
		ID:       filepath.Base(dir),
		Platform: model.PlatformAntigravity,
		Title:    title,
		Messages: msgs,
		Metadata: map[string]any{"artifacts_dir": dir},
	}
	if info, err := os.Stat(dir); err == nil {
		conv.CreatedAt = info.ModTime().UTC()
		conv.UpdatedAt = info.ModTime().UTC()
	}
	return conv, nil
}

// parseOverview splits overview.txt on USER_REQUEST:/ASSISTANT: markers.
// Text before the first marker is pre-marker noise and is discarded.
func (p *Antigravity) parseOverview(path string) []model.Message {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var msgs []model.Message
	sections := strings.Split(string(data), userRequestMarker)
	for _, section := range sections[1:] {
		userPart, assistantPart, found := strings.Cut(section, assistantMarker)

		if text := strings.TrimSpace(userPart); text != "" {
			msgs = append(msgs, model.Message{Role: model.RoleUser, Content: text})
		}
		if !found {
			continue
		}
		if text := strings.TrimSpace(assistantPart); text != "" {
			msgs = append(msgs, model.Message{Role: model.RoleAssistant, Content: text})
		}
	}
	return msgs
}

// parseTaskLogs folds each task_*.txt file in as one assistant message,
// in filename order.
func (p *Antigravity) parseTaskLogs(logsDir string) []model.Message {
	matches, err := filepath.Glob(filepath.Join(logsDir, "task_*.txt"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var msgs []model.Message
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil || strings.TrimSpace(string(data)) == "" {
			continue
		}
		name := filepath.Base(path)
		msgs = append(msgs, model.Message{
			Role:    model.RoleAssistant,
			Content: "[Task Log: " + name + "]\n\n" + string(data),
			Metadata: map[string]any{
				"task_log": true,
				"filename": name,
			},
		})
	}
	return msgs
}

// firstHeading returns the first markdown heading line of a file, stripped
// of its leading hashes, or "" when the file is absent or not heading-led.
func firstHeading(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return ""
	}
	line := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(line, "#") {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}
