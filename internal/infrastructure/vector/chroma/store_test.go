package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type embedderFake struct {
	calls int32
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	return []float32{0.1, 0.2}, nil
}

func TestQueryParsesParallelSequences(t *testing.T) {
	var lookups int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/collections/repo_go":
			atomic.AddInt32(&lookups, 1)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "repo_go"})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/collections/col-1/query":
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode query request: %v", err)
			}
			if req["n_results"].(float64) != 3 {
				t.Errorf("expected n_results=3, got %v", req["n_results"])
			}
			_, _ = w.Write([]byte(`{
				"ids": [["a","b"]],
				"documents": [["text a","text b"]],
				"metadatas": [[{"source":"a.go","chunk_index":1},{"source":"b.go"}]],
				"distances": [[0.2, 0.8]]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := New(server.URL, &embedderFake{})
	result, err := store.Query(context.Background(), "repo_go", "query text", 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Len() != 2 {
		t.Fatalf("expected 2 hits, got %d", result.Len())
	}
	if result.IDs[0] != "a" || result.Documents[1] != "text b" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Distances[1] != 0.8 {
		t.Fatalf("expected distance 0.8, got %v", result.Distances[1])
	}
	if result.Metadatas[0]["chunk_index"] != "1" {
		t.Fatalf("expected non-string metadata stringified, got %v", result.Metadatas[0])
	}

	// Second query reuses the cached collection id.
	if _, err := store.Query(context.Background(), "repo_go", "another", 3); err != nil {
		t.Fatalf("second Query() error = %v", err)
	}
	if got := atomic.LoadInt32(&lookups); got != 1 {
		t.Fatalf("expected single collection lookup, got %d", got)
	}
}

func TestQueryMissingCollectionErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	store := New(server.URL, &embedderFake{})
	if _, err := store.Query(context.Background(), "repo_missing", "q", 3); err == nil {
		t.Fatalf("expected error for missing collection")
	}
}

func TestAddCreatesCollectionAndUpserts(t *testing.T) {
	var created, added int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/collections":
			atomic.AddInt32(&created, 1)
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["get_or_create"] != true {
				t.Errorf("expected get_or_create=true, got %v", req["get_or_create"])
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-9"})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/collections/col-9/add":
			atomic.AddInt32(&added, 1)
			var req struct {
				IDs        []string            `json:"ids"`
				Embeddings [][]float32         `json:"embeddings"`
				Documents  []string            `json:"documents"`
				Metadatas  []map[string]string `json:"metadatas"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode add request: %v", err)
			}
			if len(req.IDs) != 2 || len(req.Embeddings) != 2 {
				t.Errorf("expected 2 ids and embeddings, got %d/%d", len(req.IDs), len(req.Embeddings))
			}
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := New(server.URL, &embedderFake{})
	err := store.Add(context.Background(), "repo_go",
		[]string{"id-1", "id-2"},
		[]string{"chunk one", "chunk two"},
		[]map[string]string{{"source": "a.go"}, {"source": "b.go"}},
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if atomic.LoadInt32(&created) != 1 || atomic.LoadInt32(&added) != 1 {
		t.Fatalf("expected one create and one add, got %d/%d", created, added)
	}
}

func TestAddRejectsMismatchedBatch(t *testing.T) {
	store := New("http://unused", &embedderFake{})
	err := store.Add(context.Background(), "repo_go", []string{"a"}, []string{"x", "y"}, []map[string]string{nil})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestDropCollectionToleratesMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "unexpected", http.StatusBadRequest)
	}))
	defer server.Close()

	store := New(server.URL, &embedderFake{})
	if err := store.DropCollection(context.Background(), "repo_go"); err != nil {
		t.Fatalf("DropCollection() error = %v", err)
	}
}

func TestGetByFilterBuildsWhereClause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/collections/repo_go":
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1"})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/collections/col-1/get":
			var req struct {
				Where map[string]string `json:"where"`
				Limit int               `json:"limit"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Where["source"] != "a.go" || req.Limit != 5 {
				t.Errorf("unexpected get request: %+v", req)
			}
			_, _ = w.Write([]byte(`{"ids":["a"],"documents":["text a"],"metadatas":[{"source":"a.go"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	store := New(server.URL, &embedderFake{})
	docs, err := store.GetByFilter(context.Background(), "repo_go", map[string]string{"source": "a.go"}, 5)
	if err != nil {
		t.Fatalf("GetByFilter() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Text != "text a" {
		t.Fatalf("unexpected docs %+v", docs)
	}
}
