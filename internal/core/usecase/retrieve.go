package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
	"github.com/kirillkom/git-guard/internal/observability/metrics"
)

// Retriever orchestrates candidate fetch against the partitioned document
// store and fuses vector similarity with lexical overlap.
//
// Retrieval is a best-effort enrichment step: every store fault degrades to an
// empty result, and callers cannot distinguish a failure from a true
// empty-result case.
type Retriever struct {
	store       ports.VectorStore
	partitions  domain.PartitionTable
	maxDistance float64
	logger      *slog.Logger
	metrics     *metrics.PipelineMetrics
}

func NewRetriever(
	store ports.VectorStore,
	partitions domain.PartitionTable,
	maxDistance float64,
	logger *slog.Logger,
	pipelineMetrics *metrics.PipelineMetrics,
) *Retriever {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxVectorDistance
	}
	if len(partitions) == 0 {
		partitions = domain.DefaultPartitionTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:       store,
		partitions:  partitions,
		maxDistance: maxDistance,
		logger:      logger,
		metrics:     pipelineMetrics,
	}
}

// VectorRetrieve queries the store for the topK nearest documents in the
// given collection and attaches normalized relevance scores.
func (r *Retriever) VectorRetrieve(ctx context.Context, query, collection string, topK int) []domain.Document {
	if topK < 1 {
		topK = 1
	}

	start := time.Now()
	result, err := r.store.Query(ctx, collection, query, topK)
	if err != nil {
		r.logger.Warn("vector retrieve degraded to empty result",
			"collection", collection, "error", err)
		r.metrics.ObserveRetrieve(collection, "degraded", time.Since(start))
		return nil
	}

	n := result.Len()
	out := make([]domain.Document, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Document{
			ID:       result.IDs[i],
			Text:     result.Documents[i],
			Metadata: result.MetadataAt(i),
			Score:    NormalizeDistance(result.Distances[i], r.maxDistance),
			Source:   domain.SourceVector,
		})
	}

	outcome := "ok"
	if len(out) == 0 {
		outcome = "empty"
	}
	r.metrics.ObserveRetrieve(collection, outcome, time.Since(start))
	return out
}

// HybridRetrieve over-fetches 2·topK vector candidates, blends in a lexical
// overlap signal and returns the topK best by fused score. Ties keep the
// original vector order.
func (r *Retriever) HybridRetrieve(ctx context.Context, query, collection string, topK int) []domain.Document {
	if topK < 1 {
		topK = 1
	}

	candidates := r.VectorRetrieve(ctx, query, collection, topK*hybridOverFetch)
	if len(candidates) == 0 {
		return nil
	}

	for i := range candidates {
		keyword := keywordOverlapScore(query, candidates[i].Text)
		candidates[i].Score = candidates[i].Score*vectorScoreWeight + keyword*keywordScoreWeight
		candidates[i].Source = domain.SourceHybrid
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// RetrieveByPartition resolves a partition hint (a file suffix) through the
// extension table and delegates to HybridRetrieve. Unmapped hints return
// nothing without contacting the store.
func (r *Retriever) RetrieveByPartition(ctx context.Context, query, partitionHint string, topK int) []domain.Document {
	collection, ok := r.partitions.Resolve(partitionHint)
	if !ok {
		return nil
	}
	return r.HybridRetrieve(ctx, query, collection, topK)
}

// keywordOverlapScore counts distinct whitespace-split query tokens present as
// substrings of text, case-sensitively, at keywordMatchStep each, capped at 1.
func keywordOverlapScore(query, text string) float64 {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(tokens))
	matches := 0
	for _, token := range tokens {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if strings.Contains(text, token) {
			matches++
		}
	}
	score := float64(matches) * keywordMatchStep
	if score > 1.0 {
		score = 1.0
	}
	return score
}
