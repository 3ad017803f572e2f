package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State makes ingestion resumable: a re-run skips export paths that were
// already processed unless the store is reset. An empty path disables
// persistence (Save becomes a no-op).
type State struct {
	StartedAt       time.Time `json:"started_at"`
	LastProcessedAt time.Time `json:"last_processed_at"`
	SourcesDone     []string  `json:"sources_done"`
	Conversations   int       `json:"conversations"`
	CodeSnippets    int       `json:"code_snippets"`
	ChunksStored    int       `json:"chunks_stored"`
	Errors          []string  `json:"errors"`

	path string // not serialized
}

func NewState(path string) *State {
	return &State{
		StartedAt: time.Now().UTC(),
		path:      path,
	}
}

// LoadState reads the state file, or returns a fresh state when it does
// not exist yet.
func LoadState(path string) (*State, error) {
	if path == "" {
		return NewState(""), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(path), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = path
	return &s, nil
}

func (s *State) Save() error {
	if s.path == "" {
		return nil
	}
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *State) IsProcessed(path string) bool {
	for _, p := range s.SourcesDone {
		if p == path {
			return true
		}
	}
	return false
}

func (s *State) MarkProcessed(path string) {
	s.SourcesDone = append(s.SourcesDone, path)
}

func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
