package domain

// ScoreSource records the last pipeline stage that set a document's score.
type ScoreSource string

const (
	SourceVector ScoreSource = "vector"
	SourceHybrid ScoreSource = "hybrid"
	SourceRerank ScoreSource = "rerank"
)

// Document is one retrieved reference snippet. It lives only for the duration
// of a single query; persistence belongs to the external store.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
	Source   ScoreSource       `json:"source"`
}

// StoreResult is the raw shape returned by the document store: parallel
// sequences of equal length.
type StoreResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]string
	Distances []float64
}

// Len returns the number of hits, bounded by the shortest parallel sequence
// so a malformed store response can never cause an out-of-range read.
func (r StoreResult) Len() int {
	n := len(r.IDs)
	if len(r.Documents) < n {
		n = len(r.Documents)
	}
	if len(r.Distances) < n {
		n = len(r.Distances)
	}
	return n
}

// MetadataAt returns the metadata for hit i, tolerating a short metadata list.
func (r StoreResult) MetadataAt(i int) map[string]string {
	if i < len(r.Metadatas) {
		return r.Metadatas[i]
	}
	return nil
}
