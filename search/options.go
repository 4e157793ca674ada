package search

import (
	"time"

	"github.com/calyptra/lectern/core"
)

// Options controls a single search call.
type Options struct {
	// MatchCount caps the number of returned results.
	MatchCount int

	// SimilarityThreshold filters out candidates below this raw vector
	// similarity.
	SimilarityThreshold float32

	// FilterIds restricts the search to the given content items. Nil means
	// the owner's whole content set.
	FilterIds []core.ID

	// BoostRecent weighs newer content higher, decaying with age.
	BoostRecent bool

	// BoostPopular weighs frequently viewed content higher, capped.
	BoostPopular bool

	// BoostForOwner weighs content the requesting owner has previously
	// consumed higher.
	BoostForOwner bool

	// EnableCache serves repeated queries from the cache store within
	// CacheTTL.
	EnableCache bool

	// CacheTTL bounds the staleness of cached results.
	CacheTTL time.Duration

	// Deduplicate drops candidates whose text is nearly identical to an
	// already-selected higher-ranked candidate.
	Deduplicate bool

	// DedupThreshold is the token-overlap ratio above which two candidates
	// count as duplicates.
	DedupThreshold float64
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		MatchCount:          10,
		SimilarityThreshold: 0.60,
		BoostRecent:         true,
		BoostPopular:        true,
		BoostForOwner:       true,
		EnableCache:         true,
		CacheTTL:            5 * time.Minute,
		Deduplicate:         true,
		DedupThreshold:      0.85,
	}
}

// Weights tunes the ranking combination. The defaults affect ranking
// quality, not correctness; deployments may override them.
type Weights struct {
	// Similarity scales the raw vector similarity.
	Similarity float32

	// Recency scales the age-decay boost.
	Recency float32

	// Popularity scales the capped view-count boost.
	Popularity float32

	// Personalization scales the previously-viewed boost.
	Personalization float32

	// RecencyHalfLifeDays is the age at which the recency boost halves.
	RecencyHalfLifeDays float64

	// PopularityCap is the view count at which the popularity boost
	// saturates.
	PopularityCap int64
}

// DefaultWeights returns the default ranking weights.
func DefaultWeights() Weights {
	return Weights{
		Similarity:          1.0,
		Recency:             0.15,
		Popularity:          0.10,
		Personalization:     0.10,
		RecencyHalfLifeDays: 30,
		PopularityCap:       1000,
	}
}
