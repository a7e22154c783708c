package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/kirillkom/git-guard/internal/config"
	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
	"github.com/kirillkom/git-guard/internal/core/usecase"
	"github.com/kirillkom/git-guard/internal/infrastructure/chunking"
	"github.com/kirillkom/git-guard/internal/infrastructure/gitrepo"
	"github.com/kirillkom/git-guard/internal/infrastructure/llm/zhipu"
	"github.com/kirillkom/git-guard/internal/infrastructure/queue/nats"
	"github.com/kirillkom/git-guard/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/git-guard/internal/infrastructure/resilience"
	"github.com/kirillkom/git-guard/internal/infrastructure/vector/chroma"
	"github.com/kirillkom/git-guard/internal/observability/metrics"
)

// App wires the retrieval pipeline. The analyzer hook, the indexer CLI and
// the reindex worker all build the same App and use the slice they need.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.PipelineMetrics

	AnalyzeUC ports.CommitAnalyzer
	IndexUC   ports.RepositoryIndexer
	Reports   ports.ReportStore

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	partitions, err := config.LoadPartitionTable(cfg.PartitionTableFile)
	if err != nil {
		return nil, fmt.Errorf("load partition table: %w", err)
	}

	pipelineMetrics := metrics.NewPipelineMetrics()
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	zhipuClient := zhipu.New(zhipu.Config{
		APIKey:     cfg.ZhipuAPIKey,
		BaseURL:    cfg.ZhipuBaseURL,
		ChatModel:  cfg.ZhipuChatModel,
		EmbedModel: cfg.ZhipuEmbedModel,
		Executor:   executor,
	})

	var limiter *rate.Limiter
	if cfg.EmbedRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSecond), 1)
	}
	embedder := zhipu.NewEmbedder(zhipuClient, limiter)

	store := chroma.New(cfg.ChromaURL, embedder)
	reranker := zhipu.NewReranker(cfg.RerankURL, cfg.ZhipuAPIKey, cfg.RerankModel, logger, pipelineMetrics)

	retriever := usecase.NewRetriever(store, partitions, cfg.MaxVectorDistance, logger, pipelineMetrics)
	rewrites := usecase.NewQueryRewriteService(zhipu.NewRewriter(zhipuClient), cfg.RewriteCacheSize, logger, pipelineMetrics)
	assembler := usecase.NewContextAssembler(
		retriever, reranker,
		cfg.RetrieveTopK, cfg.RerankTopK, cfg.SnippetCharBudget, cfg.ContextCharBudget,
	).WithQueryRewriter(rewrites)

	var reports ports.ReportStore
	closeFn := func() {}
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewReportRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		reports = repo
		closeFn = func() { _ = db.Close() }
	}

	changes := gitrepo.NewChangeSource(cfg.RepoRoot)
	analyzeUC := usecase.NewAnalyzeCommitUseCase(
		changes, assembler, zhipu.NewCompleter(zhipuClient), reports, logger,
		cfg.CommitStyle, cfg.ExtraGuidelines,
	)

	walker := gitrepo.NewWalker(cfg.RepoRoot)
	selector := chunking.NewSelector(cfg.ChunkSize, cfg.ChunkOverlap)
	indexUC := usecase.NewIndexRepositoryUseCase(walker, store, selector, partitions, logger, pipelineMetrics)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   pipelineMetrics,
		AnalyzeUC: analyzeUC,
		IndexUC:   indexUC,
		Reports:   reports,
		closeFn:   closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewQueue connects to NATS for the reindex subject. Only the indexer and the
// worker need it, so it is wired separately from the core pipeline.
func NewQueue(cfg config.Config) (*nats.Queue, error) {
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	return queue, nil
}

// Partitions re-reads the configured table; exposed for CLI validation.
func Partitions(cfg config.Config) (domain.PartitionTable, error) {
	return config.LoadPartitionTable(cfg.PartitionTableFile)
}
