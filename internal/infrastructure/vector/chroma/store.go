package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/git-guard/internal/core/domain"
	"github.com/kirillkom/git-guard/internal/core/ports"
)

// Store adapts the Chroma HTTP API to the document store port. Collections
// are addressed by name externally and resolved to Chroma collection ids on
// first use; query text is embedded through the configured embedding function
// before hitting the index.
type Store struct {
	baseURL    string
	embedder   ports.Embedder
	httpClient *http.Client

	mu            sync.Mutex
	collectionIDs map[string]string
}

func New(baseURL string, embedder ports.Embedder) *Store {
	return &Store{
		baseURL:       strings.TrimRight(baseURL, "/"),
		embedder:      embedder,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		collectionIDs: make(map[string]string),
	}
}

// Query returns the topK nearest documents of a collection as parallel
// sequences of ids, texts, metadata and distances. A missing collection or a
// failed embedding surfaces as an error for the retrieval engine to degrade.
func (s *Store) Query(ctx context.Context, collection, queryText string, topK int) (domain.StoreResult, error) {
	vector, err := s.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return domain.StoreResult{}, fmt.Errorf("embed query: %w", err)
	}

	collectionID, err := s.resolveCollection(ctx, collection, false)
	if err != nil {
		return domain.StoreResult{}, err
	}

	reqBody := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var resp struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	path := fmt.Sprintf("/api/v1/collections/%s/query", collectionID)
	if err := s.postJSON(ctx, path, reqBody, &resp, "query"); err != nil {
		return domain.StoreResult{}, err
	}

	result := domain.StoreResult{}
	if len(resp.IDs) > 0 {
		result.IDs = resp.IDs[0]
	}
	if len(resp.Documents) > 0 {
		result.Documents = resp.Documents[0]
	}
	if len(resp.Distances) > 0 {
		result.Distances = resp.Distances[0]
	}
	if len(resp.Metadatas) > 0 {
		result.Metadatas = make([]map[string]string, 0, len(resp.Metadatas[0]))
		for _, meta := range resp.Metadatas[0] {
			result.Metadatas = append(result.Metadatas, stringifyMetadata(meta))
		}
	}
	return result, nil
}

// Add embeds the given texts and upserts them into the collection, creating
// it when absent.
func (s *Store) Add(ctx context.Context, collection string, ids, texts []string, metadatas []map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(texts) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids/texts/metadatas mismatch: %d/%d/%d", len(ids), len(texts), len(metadatas))
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("vectors/texts mismatch: %d/%d", len(vectors), len(texts))
	}

	collectionID, err := s.resolveCollection(ctx, collection, true)
	if err != nil {
		return err
	}

	reqBody := map[string]any{
		"ids":        ids,
		"embeddings": vectors,
		"documents":  texts,
		"metadatas":  metadatas,
	}
	path := fmt.Sprintf("/api/v1/collections/%s/add", collectionID)
	return s.postJSON(ctx, path, reqBody, nil, "add")
}

// GetByFilter fetches documents matching exact metadata values, without
// similarity ranking.
func (s *Store) GetByFilter(ctx context.Context, collection string, where map[string]string, limit int) ([]domain.Document, error) {
	collectionID, err := s.resolveCollection(ctx, collection, false)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]any{
		"include": []string{"documents", "metadatas"},
	}
	if len(where) > 0 {
		filter := make(map[string]any, len(where))
		for k, v := range where {
			filter[k] = v
		}
		reqBody["where"] = filter
	}
	if limit > 0 {
		reqBody["limit"] = limit
	}

	var resp struct {
		IDs       []string         `json:"ids"`
		Documents []string         `json:"documents"`
		Metadatas []map[string]any `json:"metadatas"`
	}
	path := fmt.Sprintf("/api/v1/collections/%s/get", collectionID)
	if err := s.postJSON(ctx, path, reqBody, &resp, "get"); err != nil {
		return nil, err
	}

	out := make([]domain.Document, 0, len(resp.IDs))
	for i := range resp.IDs {
		doc := domain.Document{ID: resp.IDs[i]}
		if i < len(resp.Documents) {
			doc.Text = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			doc.Metadata = stringifyMetadata(resp.Metadatas[i])
		}
		out = append(out, doc)
	}
	return out, nil
}

// DropCollection deletes a collection by name. A missing collection is not an
// error: the point is that it no longer exists.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	s.mu.Lock()
	delete(s.collectionIDs, collection)
	s.mu.Unlock()

	url := fmt.Sprintf("%s/api/v1/collections/%s", s.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create delete collection request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma delete collection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		return formatHTTPError("delete collection", resp)
	}
	return nil
}

// resolveCollection maps a collection name to its Chroma id, creating the
// collection when create is set. Resolved ids are cached per name.
func (s *Store) resolveCollection(ctx context.Context, collection string, create bool) (string, error) {
	s.mu.Lock()
	if id, ok := s.collectionIDs[collection]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	var id string
	var err error
	if create {
		id, err = s.createCollection(ctx, collection)
	} else {
		id, err = s.lookupCollection(ctx, collection)
	}
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.collectionIDs[collection] = id
	s.mu.Unlock()
	return id, nil
}

func (s *Store) lookupCollection(ctx context.Context, collection string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/collections/%s", s.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create lookup collection request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chroma lookup collection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", domain.WrapError(domain.ErrCollectionNotFound, "lookup collection", fmt.Errorf("%s", collection))
	}
	if resp.StatusCode >= 300 {
		return "", formatHTTPError("lookup collection", resp)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode lookup collection response: %w", err)
	}
	if body.ID == "" {
		return "", fmt.Errorf("lookup collection: empty id for %s", collection)
	}
	return body.ID, nil
}

func (s *Store) createCollection(ctx context.Context, collection string) (string, error) {
	reqBody := map[string]any{
		"name":          collection,
		"get_or_create": true,
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := s.postJSON(ctx, "/api/v1/collections", reqBody, &body, "create collection"); err != nil {
		return "", err
	}
	if body.ID == "" {
		return "", fmt.Errorf("create collection: empty id for %s", collection)
	}
	return body.ID, nil
}

func (s *Store) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chroma %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return formatHTTPError(operation, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("chroma %s status: %s", operation, resp.Status)
	}
	return fmt.Errorf("chroma %s status: %s: %s", operation, resp.Status, msg)
}

func stringifyMetadata(meta map[string]any) map[string]string {
	if meta == nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
