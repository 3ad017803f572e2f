package sources

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conductor-ai/recall/internal/model"
)

// ChatGPT exports are a list of conversation records. Each record's
// "mapping" is a tree of message nodes keyed by node id; linear order is
// recovered by flattening the tree and sorting on create_time rather than
// walking the parent/child edges.

type ChatGPT struct {
	logger *slog.Logger
}

func NewChatGPT(logger *slog.Logger) *ChatGPT {
	return &ChatGPT{logger: logger}
}

func (p *ChatGPT) Platform() model.Platform { return model.PlatformChatGPT }

type cgptRecord struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Title          string              `json:"title"`
	CreateTime     float64             `json:"create_time"`
	UpdateTime     float64             `json:"update_time"`
	Mapping        map[string]cgptNode `json:"mapping"`
	Model          string              `json:"model"`
	PluginIDs      []string            `json:"plugin_ids"`
}

type cgptNode struct {
	Message *cgptMessage `json:"message"`
}

type cgptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content struct {
		Parts []any `json:"parts"`
	} `json:"content"`
	CreateTime float64 `json:"create_time"`
	Metadata   struct {
		ModelSlug string `json:"model_slug"`
	} `json:"metadata"`
}

// Process reads a conversations.json export, either directly or from inside
// a ZIP archive. Malformed records are dropped individually.
func (p *ChatGPT) Process(path string) (Result, error) {
	var res Result
	if pathMissing(path, p.logger) {
		return res, nil
	}

	data, err := p.readExport(path)
	if err != nil {
		return res, fmt.Errorf("read export: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return res, fmt.Errorf("decode export: %w", err)
	}
	p.logger.Info("chatgpt export loaded", "path", path, "records", len(records))

	for _, raw := range records {
		var rec cgptRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			p.logger.Warn("skipping malformed conversation record", "error", err)
			continue
		}
		res.collect(p.parseRecord(&rec))
	}

	p.logger.Info("chatgpt export processed",
		"conversations", len(res.Conversations),
		"code_snippets", len(res.Snippets),
	)
	return res, nil
}

// readExport returns the raw conversations.json bytes, extracting from a
// ZIP archive when given one.
func (p *ChatGPT) readExport(path string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		return os.ReadFile(path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if filepath.Base(f.Name) != "conversations.json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open zip entry: %w", err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("conversations.json not found in %s", path)
}

// decodeRecords accepts both the bare list export and the object-wrapped
// {"conversations": [...]} variant.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Conversations []json.RawMessage `json:"conversations"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Conversations, nil
}

func (p *ChatGPT) parseRecord(rec *cgptRecord) *model.Conversation {
	id := rec.ID
	if id == "" {
		id = rec.ConversationID
	}
	title := rec.Title
	if title == "" {
		title = defaultTitle
	}

	// Flatten the mapping tree: every node that carries a message, sorted
	// by create_time ascending. Stable sort keeps tie order deterministic.
	nodes := make([]*cgptMessage, 0, len(rec.Mapping))
	for _, node := range rec.Mapping {
		if node.Message != nil {
			nodes = append(nodes, node.Message)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].CreateTime < nodes[j].CreateTime
	})

	var msgs []model.Message
	for _, n := range nodes {
		if m, ok := p.parseMessage(n); ok {
			msgs = append(msgs, m)
		}
	}

	return &model.Conversation{
		ID:        id,
		Platform:  model.PlatformChatGPT,
		Title:     title,
		Messages:  msgs,
		CreatedAt: epochTime(rec.CreateTime),
		UpdatedAt: epochTime(rec.UpdateTime),
		Metadata: map[string]any{
			"model":      rec.Model,
			"plugin_ids": rec.PluginIDs,
		},
	}
}

// parseMessage joins non-empty string parts with newlines. A message with
// no textual content is dropped without affecting its siblings.
func (p *ChatGPT) parseMessage(msg *cgptMessage) (model.Message, bool) {
	var parts []string
	for _, part := range msg.Content.Parts {
		if s, ok := part.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	content := strings.Join(parts, "\n")
	if content == "" {
		return model.Message{}, false
	}

	return model.Message{
		Role:      cgptRole(msg.Author.Role),
		Content:   content,
		Timestamp: epochTime(msg.CreateTime),
		Metadata: map[string]any{
			"message_id": msg.ID,
			"model":      msg.Metadata.ModelSlug,
		},
	}, true
}

func cgptRole(role string) model.Role {
	switch role {
	case "user":
		return model.RoleUser
	case "assistant":
		return model.RoleAssistant
	default:
		return model.RoleSystem
	}
}

func epochTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	whole := int64(sec)
	return time.Unix(whole, int64((sec-float64(whole))*1e9)).UTC()
}
