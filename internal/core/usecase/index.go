package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
	"github.com/kirillkom/git-guard/internal/observability/metrics"
)

const indexBatchSize = 64

// IndexRepositoryUseCase rebuilds the language-partitioned collections from
// the working repository: walk matching files, split them with the partition's
// chunking strategy and add the chunks to the document store in batches.
type IndexRepositoryUseCase struct {
	walker     ports.SourceWalker
	store      ports.VectorStore
	chunkers   ports.ChunkerSelector
	partitions domain.PartitionTable
	logger     *slog.Logger
	metrics    *metrics.PipelineMetrics
}

func NewIndexRepositoryUseCase(
	walker ports.SourceWalker,
	store ports.VectorStore,
	chunkers ports.ChunkerSelector,
	partitions domain.PartitionTable,
	logger *slog.Logger,
	pipelineMetrics *metrics.PipelineMetrics,
) *IndexRepositoryUseCase {
	if len(partitions) == 0 {
		partitions = domain.DefaultPartitionTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRepositoryUseCase{
		walker:     walker,
		store:      store,
		chunkers:   chunkers,
		partitions: partitions,
		logger:     logger,
		metrics:    pipelineMetrics,
	}
}

// Index rebuilds the collection a partition hint maps to, or every registered
// collection when the hint is empty or "all". A failing partition is logged
// and skipped; the remaining partitions still index.
func (uc *IndexRepositoryUseCase) Index(ctx context.Context, partitionHint string) error {
	collections, err := uc.targetCollections(partitionHint)
	if err != nil {
		return err
	}

	var failed int
	for _, collection := range collections {
		start := time.Now()
		err := uc.indexCollection(ctx, collection)
		uc.metrics.ObserveIndexPartition(collection, time.Since(start), err)
		if err != nil {
			failed++
			uc.logger.Error("partition indexing failed", "collection", collection, "error", err)
		}
	}
	if failed == len(collections) && failed > 0 {
		return fmt.Errorf("indexing failed for all %d partitions", failed)
	}
	return nil
}

func (uc *IndexRepositoryUseCase) targetCollections(hint string) ([]string, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || hint == "all" {
		return uc.partitions.Collections(), nil
	}
	collection, ok := uc.partitions.Resolve(hint)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve partition", fmt.Errorf("unmapped suffix %q", hint))
	}
	return []string{collection}, nil
}

func (uc *IndexRepositoryUseCase) indexCollection(ctx context.Context, collection string) error {
	// Full rebuild: stale chunks from removed files must not linger.
	if err := uc.store.DropCollection(ctx, collection); err != nil {
		uc.logger.Warn("drop collection before reindex", "collection", collection, "error", err)
	}

	chunker := uc.chunkers.ForCollection(collection)
	suffixes := uc.partitions.Suffixes(collection)

	batch := newIndexBatch(collection)
	total := 0
	err := uc.walker.Walk(ctx, suffixes, func(path, content string) error {
		chunks := chunker.Split(content)
		for _, chunk := range chunks {
			batch.add(path, chunk)
			if batch.full() {
				if err := uc.flush(ctx, collection, batch); err != nil {
					return err
				}
			}
		}
		total += len(chunks)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s sources: %w", collection, err)
	}
	if err := uc.flush(ctx, collection, batch); err != nil {
		return err
	}

	uc.logger.Info("partition indexed", "collection", collection, "chunks", total)
	return nil
}

func (uc *IndexRepositoryUseCase) flush(ctx context.Context, collection string, batch *indexBatch) error {
	if batch.empty() {
		return nil
	}
	if err := uc.store.Add(ctx, collection, batch.ids, batch.texts, batch.metadatas); err != nil {
		return fmt.Errorf("add batch to %s: %w", collection, err)
	}
	uc.metrics.AddIndexedChunks(collection, len(batch.ids))
	batch.reset()
	return nil
}

// indexBatch accumulates chunks for one store add call, with deterministic
// ids so a rerun of the indexer produces the same identifiers.
type indexBatch struct {
	collection string
	seq        int
	ids        []string
	texts      []string
	metadatas  []map[string]string
}

func newIndexBatch(collection string) *indexBatch {
	b := &indexBatch{collection: collection}
	b.reset()
	return b
}

func (b *indexBatch) add(path, chunk string) {
	safeName := strings.ReplaceAll(filepath.Base(path), ".", "_")
	b.ids = append(b.ids, fmt.Sprintf("%s_%s_%d", b.collection, safeName, b.seq))
	b.texts = append(b.texts, chunk)
	b.metadatas = append(b.metadatas, map[string]string{
		"source":   path,
		"language": b.collection,
	})
	b.seq++
}

func (b *indexBatch) full() bool  { return len(b.ids) >= indexBatchSize }
func (b *indexBatch) empty() bool { return len(b.ids) == 0 }

func (b *indexBatch) reset() {
	b.ids = make([]string, 0, indexBatchSize)
	b.texts = make([]string, 0, indexBatchSize)
	b.metadatas = make([]map[string]string, 0, indexBatchSize)
}
