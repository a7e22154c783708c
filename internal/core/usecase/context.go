package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
)

// Context assembly defaults, matching the reference pipeline.
const (
	DefaultPerInputTopK      = 10
	DefaultRerankTopK        = 3
	DefaultSnippetCharBudget = 500
	DefaultContextCharBudget = 1500
)

// ContextAssembler walks a set of changed inputs, retrieves and reranks
// reference documents per input and concatenates bounded snippets into one
// prompt-context string under a global character budget.
type ContextAssembler struct {
	retriever *Retriever
	reranker  ports.Reranker
	rewrites  *QueryRewriteService

	perInputTopK  int
	rerankTopK    int
	snippetBudget int
	totalBudget   int
}

func NewContextAssembler(
	retriever *Retriever,
	reranker ports.Reranker,
	perInputTopK, rerankTopK, snippetBudget, totalBudget int,
) *ContextAssembler {
	if perInputTopK <= 0 {
		perInputTopK = DefaultPerInputTopK
	}
	if rerankTopK <= 0 {
		rerankTopK = DefaultRerankTopK
	}
	if snippetBudget <= 0 {
		snippetBudget = DefaultSnippetCharBudget
	}
	if totalBudget <= 0 {
		totalBudget = DefaultContextCharBudget
	}
	return &ContextAssembler{
		retriever:     retriever,
		reranker:      reranker,
		perInputTopK:  perInputTopK,
		rerankTopK:    rerankTopK,
		snippetBudget: snippetBudget,
		totalBudget:   totalBudget,
	}
}

// WithQueryRewriter routes each input through the rewrite service before
// retrieval. Without it, inputs are used as queries verbatim.
func (a *ContextAssembler) WithQueryRewriter(rewrites *QueryRewriteService) *ContextAssembler {
	a.rewrites = rewrites
	return a
}

// AssembleContext builds the bounded context string for the given inputs.
// Snippets follow input iteration order and, within one input, reranked
// order; there is no global re-sort. Assembly stops at the first snippet that
// would push the buffer past the total budget, so the result is always a
// valid string within bounds. It never fails: inputs whose partition is
// unknown or whose retrieval degrades simply contribute nothing.
func (a *ContextAssembler) AssembleContext(ctx context.Context, inputs []domain.ChangedFile) string {
	var b strings.Builder

	for _, input := range inputs {
		query := input.Diff
		if a.rewrites != nil {
			query = a.rewrites.Rewrite(ctx, query)
		}

		candidates := a.retriever.RetrieveByPartition(ctx, query, input.Suffix(), a.perInputTopK)
		if len(candidates) == 0 {
			continue
		}

		final := a.reranker.Rerank(ctx, query, candidates, a.rerankTopK)
		for _, doc := range final {
			snippet := a.formatSnippet(doc)
			if b.Len()+len(snippet) > a.totalBudget {
				return b.String()
			}
			b.WriteString(snippet)
		}
	}

	return b.String()
}

func (a *ContextAssembler) formatSnippet(doc domain.Document) string {
	text := doc.Text
	if len(text) > a.snippetBudget {
		text = text[:a.snippetBudget]
	}
	return fmt.Sprintf("\n[Ref Score: %.2f]:\n%s\n", doc.Score, text)
}
