package ports

import (
	"context"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

// VectorStore is the document store adapter contract. Query embeds the text
// through the store's embedding function and returns raw hits with distances.
type VectorStore interface {
	Query(ctx context.Context, collection, queryText string, topK int) (domain.StoreResult, error)
	Add(ctx context.Context, collection string, ids, texts []string, metadatas []map[string]string) error
	GetByFilter(ctx context.Context, collection string, where map[string]string, limit int) ([]domain.Document, error)
	DropCollection(ctx context.Context, collection string) error
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Reranker re-scores a candidate shortlist. Implementations degrade to an
// identity truncation of the input on any failure, so the returned slice is
// always usable and never longer than topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []domain.Document, topK int) []domain.Document
}

// QueryRewriter rewrites a raw query into a retrieval-friendly form.
type QueryRewriter interface {
	Rewrite(ctx context.Context, query string) (string, error)
}

// CompletionService generates free text from a prompt.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chunker splits text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}

// ChunkerSelector picks a splitting strategy for a collection's language.
// Unsupported languages fall back to a generic character splitter.
type ChunkerSelector interface {
	ForCollection(collection string) Chunker
}

// ChangeSource lists the staged changes of the working repository.
type ChangeSource interface {
	StagedChanges(ctx context.Context) ([]domain.ChangedFile, error)
	RepoName() string
}

// SourceWalker yields repository files matching a set of suffixes.
type SourceWalker interface {
	Walk(ctx context.Context, suffixes []string, fn func(path, content string) error) error
}

// MessageQueue carries reindex requests between the indexer and the worker.
type MessageQueue interface {
	PublishReindexRequested(ctx context.Context, partitionHint string) error
	SubscribeReindexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ReportStore persists commit analysis reports.
type ReportStore interface {
	Create(ctx context.Context, report *domain.AnalysisReport) error
	ListRecent(ctx context.Context, repoName string, limit int) ([]domain.AnalysisReport, error)
}
