package zhipu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRewriterBuildsRewritePrompt(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Model != "glm-4" {
			t.Errorf("expected glm-4 model, got %q", payload.Model)
		}
		if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", payload.Messages)
		}
		capturedPrompt = payload.Messages[0].Content
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  FIFO cache eviction order  "}}]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, ChatModel: "glm-4"})
	got, err := NewRewriter(client).Rewrite(context.Background(), "how does the cache kick stuff out")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if got != "FIFO cache eviction order" {
		t.Fatalf("expected trimmed completion, got %q", got)
	}
	if !strings.Contains(capturedPrompt, "how does the cache kick stuff out") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestEmbedReturnsVectorPerInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data":[
			{"index":0,"embedding":[0.1,0.2]},
			{"index":1,"embedding":[0.3,0.4]}
		]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, EmbedModel: "embedding-2"})
	vectors, err := NewEmbedder(client, nil).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][0] != 0.3 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
}

func TestEmbedRejectsShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, EmbedModel: "embedding-2"})
	if _, err := NewEmbedder(client, nil).Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for missing vectors")
	}
}

func TestChatRequiresAPIKey(t *testing.T) {
	client := New(Config{BaseURL: "http://unused", ChatModel: "glm-4"})
	_, err := NewRewriter(client).Rewrite(context.Background(), "query")
	if err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestCompleterSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := New(Config{APIKey: "key", BaseURL: server.URL, ChatModel: "glm-4"})
	if _, err := NewCompleter(client).Complete(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected API error to surface")
	}
}
