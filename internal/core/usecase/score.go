package usecase

// Score fusion tunables. Kept as named constants so the algorithm's knobs are
// visible and testable in isolation.
const (
	// DefaultMaxVectorDistance is the worst-case similarity distance of the
	// embedding space; anything at or beyond it normalizes to zero relevance.
	DefaultMaxVectorDistance = 2.0

	// Hybrid fusion weights: semantic similarity is the primary signal.
	vectorScoreWeight  = 0.7
	keywordScoreWeight = 0.3

	// Each distinct query token found in a candidate adds this much keyword
	// score, capped at 1.0.
	keywordMatchStep = 0.1

	// HybridRetrieve over-fetches this many times topK before re-scoring so a
	// candidate with strong lexical overlap can surface into the final top-K.
	hybridOverFetch = 2
)

// NormalizeDistance converts a raw similarity distance into a relevance score
// in [0,1]: zero distance scores 1.0, anything at or beyond maxDistance scores
// 0.0. Pure function, monotonically non-increasing in distance.
func NormalizeDistance(distance, maxDistance float64) float64 {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxVectorDistance
	}
	if distance <= 0 {
		return 1.0
	}
	ratio := distance / maxDistance
	if ratio > 1.0 {
		ratio = 1.0
	}
	return 1.0 - ratio
}
