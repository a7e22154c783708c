package ports

import (
	"context"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

// CommitAnalyzer turns a draft commit message plus the staged changes into a
// reviewed suggestion.
type CommitAnalyzer interface {
	Analyze(ctx context.Context, draftMessage string) (domain.Suggestion, error)
}

// RepositoryIndexer (re)builds the partitioned document collections from the
// working repository. An empty partitionHint indexes every registered partition.
type RepositoryIndexer interface {
	Index(ctx context.Context, partitionHint string) error
}
