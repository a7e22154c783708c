package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/git-guard/internal/core/domain"
)

type Config struct {
	LogLevel string

	RepoRoot string

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	ChromaURL string

	ZhipuAPIKey     string
	ZhipuBaseURL    string
	ZhipuChatModel  string
	ZhipuEmbedModel string

	RerankURL   string
	RerankModel string

	EmbedRatePerSecond float64

	ChunkSize    int
	ChunkOverlap int

	RewriteCacheSize  int
	MaxVectorDistance float64
	RetrieveTopK      int
	RerankTopK        int
	SnippetCharBudget int
	ContextCharBudget int

	CommitStyle     string
	ExtraGuidelines string

	PartitionTableFile string

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		RepoRoot: mustEnv("GUARD_REPO_ROOT", "."),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "index.reindex"),

		ChromaURL: mustEnv("CHROMA_URL", "http://localhost:8000"),

		ZhipuAPIKey:     mustEnv("ZHIPU_API_KEY", ""),
		ZhipuBaseURL:    mustEnv("ZHIPU_BASE_URL", ""),
		ZhipuChatModel:  mustEnv("ZHIPU_CHAT_MODEL", "glm-4"),
		ZhipuEmbedModel: mustEnv("ZHIPU_EMBED_MODEL", "embedding-2"),

		RerankURL:   mustEnv("RERANK_URL", ""),
		RerankModel: mustEnv("RERANK_MODEL", "rerank"),

		EmbedRatePerSecond: mustEnvFloat("EMBED_RATE_PER_SECOND", 5),

		ChunkSize:    mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: mustEnvInt("CHUNK_OVERLAP", 200),

		RewriteCacheSize:  mustEnvInt("REWRITE_CACHE_SIZE", 10),
		MaxVectorDistance: mustEnvFloat("MAX_VECTOR_DISTANCE", 2.0),
		RetrieveTopK:      mustEnvInt("RETRIEVE_TOP_K", 10),
		RerankTopK:        mustEnvInt("RERANK_TOP_K", 3),
		SnippetCharBudget: mustEnvInt("SNIPPET_CHAR_BUDGET", 500),
		ContextCharBudget: mustEnvInt("CONTEXT_CHAR_BUDGET", 1500),

		CommitStyle:     mustEnv("GUARD_COMMIT_STYLE", "Conventional Commits"),
		ExtraGuidelines: mustEnv("GUARD_EXTRA_GUIDELINES", ""),

		PartitionTableFile: mustEnv("GUARD_PARTITION_TABLE", ""),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// LoadPartitionTable reads the suffix-to-collection mapping from a YAML file,
// or returns the built-in table when no file is configured.
func LoadPartitionTable(path string) (domain.PartitionTable, error) {
	if path == "" {
		return domain.DefaultPartitionTable(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read partition table: %w", err)
	}

	table := domain.PartitionTable{}
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse partition table: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("partition table %s is empty", path)
	}
	return table, nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
