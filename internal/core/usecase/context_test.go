package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

type identityRerankerFake struct {
	calls int
}

func (f *identityRerankerFake) Rerank(_ context.Context, _ string, documents []domain.Document, topK int) []domain.Document {
	f.calls++
	if len(documents) > topK {
		return documents[:topK]
	}
	return documents
}

// snippetStore returns a single candidate whose formatted snippet is exactly
// 80 characters: "\n[Ref Score: 0.63]:\n" (20) + 59 payload chars + "\n".
func snippetStore() *storeFake {
	return &storeFake{result: domain.StoreResult{
		IDs:       []string{"d1"},
		Documents: []string{strings.Repeat("x", 59)},
		Distances: []float64{0.2},
	}}
}

func TestAssembleContextStopsAtTotalBudget(t *testing.T) {
	store := snippetStore()
	reranker := &identityRerankerFake{}
	r := NewRetriever(store, nil, DefaultMaxVectorDistance, nil, nil)
	assembler := NewContextAssembler(r, reranker, 10, 3, 500, 100)

	inputs := []domain.ChangedFile{
		{Path: "a.go", Diff: "zz-one"},
		{Path: "b.py", Diff: "zz-two"},
	}
	out := assembler.AssembleContext(context.Background(), inputs)

	if len(out) > 100 {
		t.Fatalf("context exceeded budget: %d chars", len(out))
	}
	if got := strings.Count(out, "[Ref Score:"); got != 1 {
		t.Fatalf("expected exactly one snippet under the budget, got %d", got)
	}
	if !strings.HasPrefix(out, "\n[Ref Score: 0.63]:\n") {
		t.Fatalf("unexpected snippet framing: %q", out[:20])
	}
}

func TestAssembleContextTruncatesSnippetText(t *testing.T) {
	store := &storeFake{result: domain.StoreResult{
		IDs:       []string{"d1"},
		Documents: []string{strings.Repeat("y", 900)},
		Distances: []float64{0.0},
	}}
	r := NewRetriever(store, nil, DefaultMaxVectorDistance, nil, nil)
	assembler := NewContextAssembler(r, &identityRerankerFake{}, 10, 3, 500, 1500)

	out := assembler.AssembleContext(context.Background(), []domain.ChangedFile{{Path: "a.go", Diff: "zz"}})
	if strings.Count(out, "y") != 500 {
		t.Fatalf("expected snippet truncated to 500 chars, got %d", strings.Count(out, "y"))
	}
}

func TestAssembleContextSkipsUnmappedInputs(t *testing.T) {
	store := snippetStore()
	reranker := &identityRerankerFake{}
	r := NewRetriever(store, nil, DefaultMaxVectorDistance, nil, nil)
	assembler := NewContextAssembler(r, reranker, 10, 3, 500, 1500)

	out := assembler.AssembleContext(context.Background(), []domain.ChangedFile{
		{Path: "notes.xyz", Diff: "zz"},
	})
	if out != "" {
		t.Fatalf("expected empty context for unmapped partition, got %q", out)
	}
	if store.queries != 0 {
		t.Fatalf("expected no store contact, got %d queries", store.queries)
	}
	if reranker.calls != 0 {
		t.Fatalf("expected reranker untouched for empty candidate set, got %d calls", reranker.calls)
	}
}

func TestAssembleContextRewritesQueryBeforeRetrieval(t *testing.T) {
	store := snippetStore()
	rewriter := &rewriterFake{result: "normalized query"}
	rewrites := NewQueryRewriteService(rewriter, 10, nil, nil)
	r := NewRetriever(store, nil, DefaultMaxVectorDistance, nil, nil)
	assembler := NewContextAssembler(r, &identityRerankerFake{}, 10, 3, 500, 1500).
		WithQueryRewriter(rewrites)

	assembler.AssembleContext(context.Background(), []domain.ChangedFile{
		{Path: "a.go", Diff: "raw diff text"},
	})
	if rewriter.calls != 1 {
		t.Fatalf("expected one rewrite call, got %d", rewriter.calls)
	}
	if store.lastQuery != "normalized query" {
		t.Fatalf("expected rewritten query at the store, got %q", store.lastQuery)
	}
}

func TestAssembleContextPreservesInputOrder(t *testing.T) {
	store := &storeFake{result: domain.StoreResult{
		IDs:       []string{"d1"},
		Documents: []string{"snippet"},
		Distances: []float64{0.2},
	}}
	r := NewRetriever(store, nil, DefaultMaxVectorDistance, nil, nil)
	assembler := NewContextAssembler(r, &identityRerankerFake{}, 10, 3, 500, 1500)

	out := assembler.AssembleContext(context.Background(), []domain.ChangedFile{
		{Path: "a.go", Diff: "zz-first"},
		{Path: "b.py", Diff: "zz-second"},
	})
	if got := strings.Count(out, "[Ref Score:"); got != 2 {
		t.Fatalf("expected two snippets, got %d", got)
	}
}
