package embedding

import (
	"strings"
	"testing"
)

func TestChunk_SingleChunkUnderBudget(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph"
	chunks := Chunk(text, 100, 20, nil)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunk_SplitsAndOverlaps(t *testing.T) {
	// Each paragraph is 40 chars = 10 estimated tokens.
	para := strings.Repeat("x", 40)
	text := strings.Join([]string{para, para, para, para}, "\n\n")

	// Budget fits two paragraphs; overlap budget fits one.
	chunks := Chunk(text, 25, 10, nil)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if got := EstimateTokens(c); got > 25+10 {
			t.Errorf("chunk %d estimated tokens = %d, exceeds budget plus overlap", i, got)
		}
	}

	// Every chunk after the first starts with the previous chunk's tail.
	for i := 1; i < len(chunks); i++ {
		prevParas := strings.Split(chunks[i-1], "\n\n")
		tail := prevParas[len(prevParas)-1]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap with previous", i)
		}
	}
}

func TestChunk_OversizedParagraphKeptWhole(t *testing.T) {
	big := strings.Repeat("y", 400) // 100 estimated tokens
	text := "small one\n\n" + big + "\n\nsmall two"

	chunks := Chunk(text, 20, 0, nil)

	// The oversized paragraph becomes its own chunk, never truncated.
	found := false
	for _, c := range chunks {
		if strings.Contains(c, big) {
			found = true
		}
	}
	if !found {
		t.Error("oversized paragraph missing from output")
	}
}

func TestChunk_PreservesOrder(t *testing.T) {
	var paras []string
	for _, s := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		paras = append(paras, strings.Repeat(s+" ", 10))
	}
	text := strings.Join(paras, "\n\n")

	chunks := Chunk(text, 25, 0, nil)
	joined := strings.Join(chunks, "\n\n")

	last := -1
	for _, word := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		idx := strings.Index(joined, word)
		if idx < last {
			t.Errorf("%s appears out of order", word)
		}
		last = idx
	}
}

func TestChunk_CustomCounter(t *testing.T) {
	// One token per paragraph forces a split every two paragraphs.
	count := func(s string) int { return 1 }
	text := "a\n\nb\n\nc\n\nd"

	chunks := Chunk(text, 2, 0, count)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "a\n\nb" || chunks[1] != "c\n\nd" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestChunk_EmptyText(t *testing.T) {
	chunks := Chunk("", 100, 10, nil)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("chunks = %q", chunks)
	}
}
