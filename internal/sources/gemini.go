package sources

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/conductor-ai/recall/internal/model"
)

// Gemini exports arrive as Takeout directories or saved HTML pages, with an
// occasional JSON variant. HTML structure is not stable across versions, so
// message containers are located by fuzzy class-name matching and role is
// inferred per container, falling back to user/assistant alternation.

type Gemini struct {
	logger *slog.Logger
}

func NewGemini(logger *slog.Logger) *Gemini {
	return &Gemini{logger: logger}
}

func (p *Gemini) Platform() model.Platform { return model.PlatformGemini }

// Process accepts a single .html/.json file or a directory that is walked
// recursively. Files whose names look like manifests or metadata sidecars
// are skipped. A file producing zero messages yields no conversation.
func (p *Gemini) Process(path string) (Result, error) {
	var res Result
	if pathMissing(path, p.logger) {
		return res, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return res, fmt.Errorf("stat: %w", err)
	}

	var files []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(fp string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(fp))
			if ext != ".html" && ext != ".json" {
				return nil
			}
			if skipFilename(d.Name(), "manifest", "metadata") {
				return nil
			}
			files = append(files, fp)
			return nil
		})
		if err != nil {
			p.logger.Warn("error walking gemini export dir", "dir", path, "error", err)
		}
		p.logger.Info("gemini export scanned", "path", path, "files", len(files))
	} else {
		files = []string{path}
	}

	for _, fp := range files {
		var conv *model.Conversation
		var perr error
		switch strings.ToLower(filepath.Ext(fp)) {
		case ".html":
			conv, perr = p.parseHTMLFile(fp)
		case ".json":
			conv, perr = p.parseJSONFile(fp)
		default:
			continue
		}
		if perr != nil {
			p.logger.Warn("skipping gemini file", "file", filepath.Base(fp), "error", perr)
			continue
		}
		res.collect(conv)
	}

	p.logger.Info("gemini export processed",
		"conversations", len(res.Conversations),
		"code_snippets", len(res.Snippets),
	)
	return res, nil
}

func (p *Gemini) parseHTMLFile(path string) (*model.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := defaultTitle
	if t := findHeadingText(doc); t != "" {
		title = truncate(t, 100)
	}

	containers := findMessageContainers(doc)
	usedFallback := false
	if len(containers) == 0 {
		// No class signal anywhere: treat every paragraph and div as a
		// candidate and rely on alternation.
		containers = findElements(doc, "p", "div")
		usedFallback = true
	}

	var msgs []model.Message
	current := model.RoleUser
	for _, c := range containers {
		text := strings.TrimSpace(nodeText(c))
		if len(text) < 5 {
			continue
		}

		role, inferred := containerRole(c, current)
		meta := map[string]any{}
		if inferred {
			// Alternation is a best-effort heuristic, not a contract;
			// flag it so consumers can judge confidence.
			meta["role_inferred"] = "alternation"
		}

		msgs = append(msgs, model.Message{
			Role:     role,
			Content:  text,
			Metadata: meta,
		})

		// Toggle after every accepted container.
		if role == model.RoleUser {
			current = model.RoleAssistant
		} else {
			current = model.RoleUser
		}
	}

	if len(msgs) == 0 {
		p.logger.Warn("no messages found in gemini html", "file", filepath.Base(path))
		return nil, nil
	}

	info, _ := os.Stat(path)
	conv := &model.Conversation{
		ID:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Platform: model.PlatformGemini,
		Title:    title,
		Messages: msgs,
		Metadata: map[string]any{
			"source_file":     filepath.Base(path),
			"container_match": !usedFallback,
		},
	}
	if info != nil {
		conv.CreatedAt = info.ModTime().UTC()
	}
	return conv, nil
}

func (p *Gemini) parseJSONFile(path string) (*model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id := firstString(obj, stem, key("id"))
	title := firstString(obj, defaultTitle, key("title"), key("name"))
	createdAt := maybeTimestamp(obj, p.logger, "created_at")

	var msgs []model.Message
	for _, raw := range firstArray(obj, "messages", "history") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content := firstString(m, "", key("content"), key("text"))
		if content == "" {
			continue
		}
		role := model.RoleAssistant
		if strings.EqualFold(firstString(m, "user", key("role"), key("author")), "user") {
			role = model.RoleUser
		}
		msgs = append(msgs, model.Message{
			Role:      role,
			Content:   content,
			Timestamp: createdAt,
		})
	}

	if len(msgs) == 0 {
		return nil, nil
	}

	meta, _ := obj["metadata"].(map[string]any)
	return &model.Conversation{
		ID:        id,
		Platform:  model.PlatformGemini,
		Title:     title,
		Messages:  msgs,
		CreatedAt: createdAt,
		Metadata:  meta,
	}, nil
}

// containerRole infers a role from class-name substrings. The second return
// is true when no class signal existed and the alternation default was used.
func containerRole(n *html.Node, current model.Role) (model.Role, bool) {
	class := strings.ToLower(attrValue(n, "class"))
	switch {
	case strings.Contains(class, "user"):
		return model.RoleUser, false
	case strings.Contains(class, "assistant"),
		strings.Contains(class, "model"),
		strings.Contains(class, "gemini"):
		return model.RoleAssistant, false
	}
	return current, true
}

// findMessageContainers returns div/article elements whose class mentions
// "message" or "response".
func findMessageContainers(doc *html.Node) []*html.Node {
	var out []*html.Node
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || (n.Data != "div" && n.Data != "article") {
			return
		}
		class := strings.ToLower(attrValue(n, "class"))
		if strings.Contains(class, "message") || strings.Contains(class, "response") {
			out = append(out, n)
		}
	})
	return out
}

func findElements(doc *html.Node, names ...string) []*html.Node {
	var out []*html.Node
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		for _, name := range names {
			if n.Data == name {
				out = append(out, n)
				return
			}
		}
	})
	return out
}

// findHeadingText returns the text of the first h1, falling back to <title>.
func findHeadingText(doc *html.Node) string {
	var h1, pageTitle string
	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "h1":
			if h1 == "" {
				h1 = strings.TrimSpace(nodeText(n))
			}
		case "title":
			if pageTitle == "" {
				pageTitle = strings.TrimSpace(nodeText(n))
			}
		}
	})
	if h1 != "" {
		return h1
	}
	return pageTitle
}

func walkNodes(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, fn)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// nodeText concatenates all text under a node, newline-separating blocks.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(trimmed)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
