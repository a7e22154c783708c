package zhipu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/observability/metrics"
)

const (
	rerankQueryCharBudget = 1000
	rerankDocCharBudget   = 2000
	rerankRequestTimeout  = 5 * time.Second
)

// Reranker calls the ZhipuAI rerank endpoint to re-score a candidate
// shortlist. It never fails the pipeline: a missing key, a transport error or
// a bad response all degrade to the first topK input documents unchanged.
type Reranker struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.PipelineMetrics
}

func NewReranker(endpoint, apiKey, model string, logger *slog.Logger, pm *metrics.PipelineMetrics) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: rerankRequestTimeout},
		logger:     logger,
		metrics:    pm,
	}
}

func (r *Reranker) Rerank(ctx context.Context, query string, documents []domain.Document, topK int) []domain.Document {
	if len(documents) == 0 {
		return nil
	}
	if r.endpoint == "" || r.apiKey == "" {
		r.metrics.IncRerank("identity")
		return truncate(documents, topK)
	}

	reranked, err := r.call(ctx, query, documents, topK)
	if err != nil {
		r.logger.Warn("rerank degraded to input order", "error", err)
		r.metrics.IncRerank("fallback")
		return truncate(documents, topK)
	}
	r.metrics.IncRerank("reranked")
	return reranked
}

func (r *Reranker) call(ctx context.Context, query string, documents []domain.Document, topK int) ([]domain.Document, error) {
	if len(query) > rerankQueryCharBudget {
		query = query[:rerankQueryCharBudget]
	}
	texts := make([]string, len(documents))
	for i, doc := range documents {
		text := doc.Text
		if len(text) > rerankDocCharBudget {
			text = text[:rerankDocCharBudget]
		}
		texts[i] = text
	}

	reqBody := map[string]any{
		"model":     r.model,
		"query":     query,
		"documents": texts,
		"top_n":     topK,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return nil, fmt.Errorf("rerank status: %s", resp.Status)
		}
		return nil, fmt.Errorf("rerank status: %s: %s", resp.Status, msg)
	}

	var parsed struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("empty rerank results")
	}

	out := make([]domain.Document, 0, topK)
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(documents) {
			return nil, fmt.Errorf("rerank index %d out of range", result.Index)
		}
		doc := documents[result.Index]
		doc.Score = result.RelevanceScore
		doc.Source = domain.SourceRerank
		out = append(out, doc)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func truncate(documents []domain.Document, topK int) []domain.Document {
	if topK <= 0 || topK >= len(documents) {
		return documents
	}
	return documents[:topK]
}
