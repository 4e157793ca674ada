package search

import "github.com/calyptra/lectern/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	CacheHit(key string, results []core.SearchResult)
	AfterQueryEmbedding(vector []float32)
	AfterSimilaritySearch(matches []*core.SimilarityMatch)
	AfterRanking(results []core.SearchResult)
	DroppedDuplicate(dropped, keptFor core.Chunk)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                  {}
func (n *noopMonitor) CacheHit(_ string, _ []core.SearchResult)        {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)                 {}
func (n *noopMonitor) AfterSimilaritySearch(_ []*core.SimilarityMatch) {}
func (n *noopMonitor) AfterRanking(_ []core.SearchResult)              {}
func (n *noopMonitor) DroppedDuplicate(_, _ core.Chunk)                {}
func (n *noopMonitor) Finish(_ []core.SearchResult)                    {}
