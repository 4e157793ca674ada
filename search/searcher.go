// Copyright 2026 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/embed"
	"github.com/calyptra/lectern/storage"
)

// overfetchFactor controls how many raw candidates the vector search
// retrieves per requested result, leaving room for deduplication and
// re-ranking without starving the final count.
const overfetchFactor = 3

// Searcher provides ranked semantic retrieval over embedded chunks.
// It is safe for concurrent use.
type Searcher struct {
	content     storage.ContentRepository
	chunks      storage.ChunkRepository
	cache       storage.CacheStore
	usage       storage.UsageRepository
	embedClient *embed.Client
	weights     Weights
	logger      *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithCacheStore enables result caching. Without a cache store every
// search runs the full retrieval path.
func WithCacheStore(cache storage.CacheStore) Option {
	return func(s *Searcher) error {
		s.cache = cache
		return nil
	}
}

// WithUsageRepository enables the personalization boost, which needs the
// owner's view history.
func WithUsageRepository(usage storage.UsageRepository) Option {
	return func(s *Searcher) error {
		s.usage = usage
		return nil
	}
}

// WithWeights overrides the ranking weights.
func WithWeights(weights Weights) Option {
	return func(s *Searcher) error {
		s.weights = weights
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	content storage.ContentRepository,
	chunks storage.ChunkRepository,
	embedClient *embed.Client,
	opts ...Option,
) (*Searcher, error) {
	if content == nil {
		return nil, ErrContentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedClient == nil {
		return nil, ErrEmbedClientRequired
	}

	s := &Searcher{
		content:     content,
		chunks:      chunks,
		embedClient: embedClient,
		weights:     DefaultWeights(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// CacheStats returns the cumulative cache hit and miss counts.
func (s *Searcher) CacheStats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Search retrieves the chunks most relevant to the query for an owner.
// An empty match set returns an empty slice, not an error.
func (s *Searcher) Search(ctx context.Context, owner core.ID, query string, opts *Options) ([]core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, owner, query, opts, nil)
}

// SearchWithMonitor is Search with observation hooks. The monitor receives
// callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, owner core.ID, query string, opts *Options, monitor SearchMonitor) ([]core.SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if owner == 0 {
		return nil, core.ErrInvalidOwner
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	useCache := opts.EnableCache && s.cache != nil
	var key string
	if useCache {
		key = cacheKey(owner, query, opts)
		if results, ok := s.readCache(ctx, key); ok {
			s.hits.Add(1)
			monitor.CacheHit(key, results)
			monitor.Finish(results)
			return results, nil
		}
	}

	// A query that cannot be embedded is a failed search, not an empty one.
	vector, _, err := s.embedClient.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryEmbedding, err)
	}
	monitor.AfterQueryEmbedding(vector)

	matches, err := s.chunks.FindSimilar(ctx, vector, storage.SimilarityOptions{
		MinSimilarity: opts.SimilarityThreshold,
		Limit:         opts.MatchCount * overfetchFactor,
		OwnerId:       owner,
		ContentIds:    opts.FilterIds,
	})
	if err != nil {
		return nil, err
	}
	monitor.AfterSimilaritySearch(matches)

	results := []core.SearchResult{}
	if len(matches) > 0 {
		ranked, err := s.rank(ctx, owner, matches, opts)
		if err != nil {
			return nil, err
		}
		monitor.AfterRanking(ranked)

		if opts.Deduplicate {
			ranked = s.deduplicate(ranked, opts.DedupThreshold, monitor)
		}
		if len(ranked) > opts.MatchCount {
			ranked = ranked[:opts.MatchCount]
		}
		results = ranked
	}

	if useCache {
		s.misses.Add(1)
		s.writeCache(ctx, owner, key, results, storage.MarshalSearchResults(results), opts.CacheTTL)
	}

	monitor.Finish(results)
	return results, nil
}

// readCache returns the cached results for a key. Any cache failure
// degrades to a miss; a broken cache must never break search.
func (s *Searcher) readCache(ctx context.Context, key string) ([]core.SearchResult, bool) {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	results, err := storage.UnmarshalSearchResults(payload)
	if err != nil {
		s.logger.Warn("cached results undecodable", "key", key, "err", err)
		return nil, false
	}
	return results, true
}

// rank scores candidates by a weighted combination of raw similarity, a
// recency decay, a capped popularity boost, and a personalization boost
// for previously viewed content. Ties break by raw similarity then chunk
// index so ranking is deterministic.
func (s *Searcher) rank(ctx context.Context, owner core.ID, matches []*core.SimilarityMatch, opts *Options) ([]core.SearchResult, error) {
	items := make(map[core.ID]*core.ContentItem)
	for _, match := range matches {
		contentId := match.Chunk.ContentId
		if _, ok := items[contentId]; ok {
			continue
		}
		item, err := s.content.GetContentItem(ctx, contentId)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Chunk outliving its item means a cascade delete raced us.
				continue
			}
			return nil, err
		}
		items[contentId] = item
	}

	viewed := make(map[core.ID]bool)
	if opts.BoostForOwner && s.usage != nil {
		ids, err := s.usage.GetViewedContent(ctx, owner)
		if err != nil {
			s.logger.Warn("loading view history failed", "owner", owner, "err", err)
		}
		for _, id := range ids {
			viewed[id] = true
		}
	}

	now := time.Now().UTC()
	results := make([]core.SearchResult, 0, len(matches))
	for _, match := range matches {
		item, ok := items[match.Chunk.ContentId]
		if !ok {
			continue
		}

		score := s.weights.Similarity * match.Similarity
		if opts.BoostRecent {
			score += s.weights.Recency * recencyBoost(item, now, s.weights.RecencyHalfLifeDays)
		}
		if opts.BoostPopular {
			score += s.weights.Popularity * popularityBoost(item, s.weights.PopularityCap)
		}
		if opts.BoostForOwner && viewed[item.Id] {
			score += s.weights.Personalization
		}

		results = append(results, core.SearchResult{
			Chunk:      *match.Chunk,
			Score:      score,
			Similarity: match.Similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Chunk.ContentId != results[j].Chunk.ContentId {
			return results[i].Chunk.ContentId < results[j].Chunk.ContentId
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	return results, nil
}

// recencyBoost decays from 1 toward 0 with the item's age.
func recencyBoost(item *core.ContentItem, now time.Time, halfLifeDays float64) float32 {
	anchor := item.ProcessedAt
	if anchor.IsZero() {
		anchor = item.InsertedAt
	}
	if anchor.IsZero() || halfLifeDays <= 0 {
		return 0
	}
	ageDays := now.Sub(anchor).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return float32(math.Exp2(-ageDays / halfLifeDays))
}

// popularityBoost grows with view count and saturates at the cap.
func popularityBoost(item *core.ContentItem, maxViews int64) float32 {
	if maxViews <= 0 || item.ViewCount <= 0 {
		return 0
	}
	views := item.ViewCount
	if views > maxViews {
		views = maxViews
	}
	return float32(views) / float32(maxViews)
}

// deduplicate greedily walks results from highest-ranked to lowest and
// drops any candidate whose text overlaps an already-kept candidate beyond
// the threshold. Overlapping chunks from one transcript are the usual
// casualty.
func (s *Searcher) deduplicate(results []core.SearchResult, threshold float64, monitor SearchMonitor) []core.SearchResult {
	if threshold <= 0 || len(results) < 2 {
		return results
	}

	kept := make([]core.SearchResult, 0, len(results))
	keptTokens := make([]map[string]bool, 0, len(results))

	for _, candidate := range results {
		tokens := tokenSet(candidate.Chunk.Text)

		duplicate := false
		for i, existing := range keptTokens {
			if textSimilarity(tokens, existing) >= threshold {
				monitor.DroppedDuplicate(candidate.Chunk, kept[i].Chunk)
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		kept = append(kept, candidate)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}
