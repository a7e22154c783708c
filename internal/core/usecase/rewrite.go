package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/git-guard/internal/cache"
	"github.com/kirillkom/git-guard/internal/core/ports"
	"github.com/kirillkom/git-guard/internal/observability/metrics"
)

// QueryRewriteService rewrites raw queries through the completion service and
// memoizes results in a bounded FIFO cache so a repeated raw query never pays
// for a second rewrite call within one process lifetime.
//
// The cache is an explicit per-service instance: independent pipelines get
// independent caches.
type QueryRewriteService struct {
	rewriter ports.QueryRewriter
	cache    *cache.FIFO
	logger   *slog.Logger
	metrics  *metrics.PipelineMetrics
}

func NewQueryRewriteService(
	rewriter ports.QueryRewriter,
	cacheSize int,
	logger *slog.Logger,
	pipelineMetrics *metrics.PipelineMetrics,
) *QueryRewriteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryRewriteService{
		rewriter: rewriter,
		cache:    cache.NewFIFO(cacheSize),
		logger:   logger,
		metrics:  pipelineMetrics,
	}
}

// Rewrite returns the rewritten form of query, from cache when possible.
// A failed rewrite degrades to the original query; the passthrough value is
// cached too, so a flapping rewrite service is consulted at most once per
// distinct query.
func (s *QueryRewriteService) Rewrite(ctx context.Context, query string) string {
	if cached, ok := s.cache.Get(query); ok {
		s.metrics.IncRewriteCache("hit")
		return cached
	}
	s.metrics.IncRewriteCache("miss")

	rewritten, err := s.rewriter.Rewrite(ctx, query)
	if err != nil || rewritten == "" {
		if err != nil {
			s.logger.Warn("query rewrite degraded to original query", "error", err)
		}
		rewritten = query
	}

	s.cache.Put(query, rewritten)
	return rewritten
}
