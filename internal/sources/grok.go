package sources

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conductor-ai/recall/internal/model"
)

// Grok exports are ZIP archives of per-conversation JSON files whose schema
// has drifted across versions. Field fallbacks are expressed as ordered
// rule lists (fields.go) so each variant stays testable in isolation.

type Grok struct {
	logger *slog.Logger
}

func NewGrok(logger *slog.Logger) *Grok {
	return &Grok{logger: logger}
}

func (p *Grok) Platform() model.Platform { return model.PlatformGrok }

// Process extracts the archive into a timestamped sibling directory and
// parses every *.json inside, skipping manifest/metadata/account sidecars.
func (p *Grok) Process(path string) (Result, error) {
	var res Result
	if pathMissing(path, p.logger) {
		return res, nil
	}

	extractDir := filepath.Join(
		filepath.Dir(path),
		"grok_extracted_"+time.Now().Format("20060102_150405"),
	)
	if err := extractZip(path, extractDir); err != nil {
		return res, fmt.Errorf("extract archive: %w", err)
	}
	p.logger.Info("grok archive extracted", "path", path, "dir", extractDir)

	var files []string
	err := filepath.WalkDir(extractDir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(fp)) != ".json" {
			return nil
		}
		if skipFilename(d.Name(), "manifest", "metadata", "account") {
			return nil
		}
		files = append(files, fp)
		return nil
	})
	if err != nil {
		p.logger.Warn("error walking extracted archive", "dir", extractDir, "error", err)
	}
	p.logger.Info("grok conversation files found", "count", len(files))

	for _, fp := range files {
		data, err := os.ReadFile(fp)
		if err != nil {
			p.logger.Warn("skipping unreadable file", "file", filepath.Base(fp), "error", err)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			p.logger.Warn("skipping malformed file", "file", filepath.Base(fp), "error", err)
			continue
		}
		res.collect(p.parseConversation(obj, filepath.Base(fp)))
	}

	p.logger.Info("grok export processed",
		"conversations", len(res.Conversations),
		"code_snippets", len(res.Snippets),
	)
	return res, nil
}

func (p *Grok) parseConversation(obj map[string]any, filename string) *model.Conversation {
	id := firstString(obj, filename, key("id"), key("conversation_id"))
	title := firstString(obj, defaultTitle, key("title"), key("name"), keyPrefix("prompt", 50))

	createdAt := maybeTimestamp(obj, p.logger, "created_at", "timestamp")
	updatedAt := maybeTimestamp(obj, p.logger, "updated_at")

	var msgs []model.Message
	for _, raw := range firstArray(obj, "messages", "history", "chat") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if msg, ok := p.parseMessage(m); ok {
			msgs = append(msgs, msg)
		}
	}

	// Single prompt/response exports carry no message array at all.
	if len(msgs) == 0 {
		prompt, pok := obj["prompt"].(string)
		response, rok := obj["response"].(string)
		if pok && rok {
			msgs = append(msgs,
				model.Message{Role: model.RoleUser, Content: prompt, Timestamp: createdAt},
				model.Message{Role: model.RoleAssistant, Content: response, Timestamp: createdAt},
			)
		}
	}

	meta, _ := obj["metadata"].(map[string]any)
	return &model.Conversation{
		ID:        id,
		Platform:  model.PlatformGrok,
		Title:     title,
		Messages:  msgs,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  meta,
	}
}

func (p *Grok) parseMessage(m map[string]any) (model.Message, bool) {
	content := firstString(m, "",
		key("content"), key("text"), key("message"), keyStringify("data"))
	if content == "" {
		return model.Message{}, false
	}

	return model.Message{
		Role:      grokRole(firstString(m, "user", key("role"), key("sender"), key("type"))),
		Content:   content,
		Timestamp: maybeTimestamp(m, p.logger, "timestamp", "created_at"),
	}, true
}

func grokRole(role string) model.Role {
	switch strings.ToLower(role) {
	case "user", "human":
		return model.RoleUser
	case "assistant", "ai", "grok":
		return model.RoleAssistant
	case "system":
		return model.RoleSystem
	default:
		return model.RoleUser
	}
}

// extractZip unpacks an archive, refusing entries that escape the target.
func extractZip(path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	for _, f := range zr.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry escapes destination: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := writeZipEntry(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
