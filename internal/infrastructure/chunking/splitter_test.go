package chunking

import (
	"strings"
	"testing"
)

func TestSplitterWindowsWithOverlap(t *testing.T) {
	splitter := NewSplitter(10, 4)
	chunks := splitter.Split(strings.Repeat("abcdef", 4)) // 24 chars

	if len(chunks) < 3 {
		t.Fatalf("expected overlapping windows, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 10 {
			t.Fatalf("chunk %d exceeds window: %d chars", i, len(chunk))
		}
	}
}

func TestSplitterEmptyInput(t *testing.T) {
	if got := NewSplitter(10, 2).Split("   "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestSplitterDefaults(t *testing.T) {
	splitter := NewSplitter(0, -1)
	if splitter.ChunkSize != DefaultChunkSize || splitter.Overlap != 0 {
		t.Fatalf("unexpected defaults %d/%d", splitter.ChunkSize, splitter.Overlap)
	}
}

func TestLanguageSplitterKeepsDeclarationsTogether(t *testing.T) {
	source := "package util\n\nfunc First() int {\n\treturn 1\n}\nfunc Second() int {\n\treturn 2\n}\n"
	chunker := NewSelector(40, 0).ForCollection("repo_go")

	chunks := chunker.Split(source)
	if len(chunks) < 2 {
		t.Fatalf("expected split at func boundaries, got %d chunks", len(chunks))
	}
	var starts int
	for _, chunk := range chunks {
		if strings.HasPrefix(chunk, "func ") {
			starts++
		}
	}
	if starts != 2 {
		t.Fatalf("expected 2 chunks opening with a declaration, got %d", starts)
	}
}

func TestLanguageSplitterFallsBackOnOversizedSegment(t *testing.T) {
	source := "func Big() {\n" + strings.Repeat("x", 200) + "\n}"
	chunker := NewSelector(50, 10).ForCollection("repo_go")

	chunks := chunker.Split(source)
	for i, chunk := range chunks {
		if len(chunk) > 50 {
			t.Fatalf("chunk %d exceeds size after fallback: %d chars", i, len(chunk))
		}
	}
}

func TestSelectorUnknownCollectionUsesGeneric(t *testing.T) {
	selector := NewSelector(100, 20)
	if _, ok := selector.ForCollection("repo_fortran").(*Splitter); !ok {
		t.Fatalf("expected generic splitter for unknown collection")
	}
	if _, ok := selector.ForCollection("repo_python").(*LanguageSplitter); !ok {
		t.Fatalf("expected language splitter for repo_python")
	}
}
