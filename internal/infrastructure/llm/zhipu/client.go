package zhipu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"

// Client talks to the ZhipuAI OpenAI-compatible API. One client is shared by
// the embedder, the query rewriter and the completion service.
type Client struct {
	api        *openai.Client
	chatModel  string
	embedModel string
	executor   *resilience.Executor
	configured bool
}

type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Executor   *resilience.Executor
}

func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		executor:   cfg.Executor,
		configured: cfg.APIKey != "",
	}
}

func (c *Client) chat(ctx context.Context, operation, prompt string) (string, error) {
	if !c.configured {
		return "", domain.WrapError(domain.ErrNotConfigured, operation, errors.New("missing api key"))
	}
	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, req)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyZhipuError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, fmt.Errorf("zhipu %s: %w", operation, err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("zhipu %s: empty choices", operation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embedder builds vectors through the embeddings endpoint. Calls are paced by
// an optional rate limiter so bulk indexing stays inside the provider quota.
type Embedder struct {
	client  *Client
	limiter *rate.Limiter
}

func NewEmbedder(client *Client, limiter *rate.Limiter) *Embedder {
	return &Embedder{client: client, limiter: limiter}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if !e.client.configured {
		return nil, domain.WrapError(domain.ErrNotConfigured, "embed", errors.New("missing api key"))
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.client.embedModel),
	}

	var resp openai.EmbeddingResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = e.client.api.CreateEmbeddings(ctx, req)
		return err
	}

	var err error
	if e.client.executor != nil {
		err = e.client.executor.Execute(ctx, "embed", call, classifyZhipuError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", fmt.Errorf("zhipu embed: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("zhipu embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Rewriter turns raw commit drafts and questions into retrieval-friendly
// queries.
type Rewriter struct {
	client *Client
}

func NewRewriter(client *Client) *Rewriter {
	return &Rewriter{client: client}
}

func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, error) {
	return r.client.chat(ctx, "rewrite", buildRewritePrompt(query))
}

// Completer generates free text from a fully built prompt.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return c.client.chat(ctx, "complete", prompt)
}
