package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestState_SaveAndReload(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "nested", "state.json")

	s := NewState(statePath)
	s.MarkProcessed("export1.zip")
	s.MarkProcessed("export2.json")
	s.Conversations = 12
	s.ChunksStored = 40
	s.AddError("one failure")

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state file not created: %v", err)
	}

	loaded, err := LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !loaded.IsProcessed("export1.zip") || !loaded.IsProcessed("export2.json") {
		t.Error("processed sources lost across reload")
	}
	if loaded.IsProcessed("export3.zip") {
		t.Error("unknown source reported as processed")
	}
	if loaded.Conversations != 12 || loaded.ChunksStored != 40 {
		t.Errorf("counts = %d / %d", loaded.Conversations, loaded.ChunksStored)
	}
	if len(loaded.Errors) != 1 {
		t.Errorf("errors = %v", loaded.Errors)
	}

	// A reloaded state saves back to the same path.
	loaded.MarkProcessed("export3.zip")
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save after reload: %v", err)
	}
}

func TestLoadState_MissingFileIsFresh(t *testing.T) {
	s, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(s.SourcesDone) != 0 {
		t.Errorf("fresh state has sources: %v", s.SourcesDone)
	}
}

func TestState_DisabledPersistence(t *testing.T) {
	s := NewState("")
	s.MarkProcessed("x")
	if err := s.Save(); err != nil {
		t.Errorf("Save with empty path should be a no-op, got %v", err)
	}
}

func TestLoadState_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(path); err == nil {
		t.Error("expected error for corrupt state file")
	}
}
