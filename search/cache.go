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
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/go-crypt/x/blake2b"
)

const (
	resultKeyPrefix  = "q:"
	contentIdxPrefix = "idx:c:"
	ownerIdxPrefix   = "idx:o:"
)

// cacheKey derives a deterministic key from the normalized query text and
// the subset of options that affect results. EnableCache and CacheTTL do
// not change what a search returns, so they stay out of the key.
func cacheKey(owner core.ID, query string, opts *Options) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	filters := slices.Clone(opts.FilterIds)
	slices.Sort(filters)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%s|%d|%g|%t|%t|%t|%t|%g|",
		owner, normalized, opts.MatchCount, opts.SimilarityThreshold,
		opts.BoostRecent, opts.BoostPopular, opts.BoostForOwner,
		opts.Deduplicate, opts.DedupThreshold)
	for _, id := range filters {
		fmt.Fprintf(&sb, "%d,", id)
	}

	h, _ := blake2b.New(16, nil)
	h.Write([]byte(sb.String()))
	return resultKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func contentIndexKey(contentId core.ID, resultKey string) string {
	return contentIdxPrefix + fmt.Sprintf("%016x", uint64(contentId)) + ":" + resultKey
}

func ownerIndexKey(owner core.ID, resultKey string) string {
	return ownerIdxPrefix + fmt.Sprintf("%016x", uint64(owner)) + ":" + resultKey
}

// writeCache stores the serialized results plus index entries pointing back
// at the result key, one per distinct content id in the result set and one
// for the owner. The indexes let invalidation find every cached result a
// content mutation could have touched.
func (s *Searcher) writeCache(ctx context.Context, owner core.ID, key string, results []core.SearchResult, payload []byte, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, payload, ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "err", err)
		return
	}

	seen := make(map[core.ID]bool, len(results))
	for _, result := range results {
		if seen[result.Chunk.ContentId] {
			continue
		}
		seen[result.Chunk.ContentId] = true
		idxKey := contentIndexKey(result.Chunk.ContentId, key)
		if err := s.cache.Set(ctx, idxKey, nil, ttl); err != nil {
			s.logger.Warn("cache index write failed", "key", idxKey, "err", err)
		}
	}

	idxKey := ownerIndexKey(owner, key)
	if err := s.cache.Set(ctx, idxKey, nil, ttl); err != nil {
		s.logger.Warn("cache index write failed", "key", idxKey, "err", err)
	}
}

// InvalidateContent removes every cached result set that could include the
// given content item.
func (s *Searcher) InvalidateContent(ctx context.Context, contentId core.ID) error {
	prefix := contentIdxPrefix + fmt.Sprintf("%016x", uint64(contentId)) + ":"
	return s.invalidateByIndex(ctx, prefix)
}

// InvalidateOwner removes every cached result set scoped to the owner's
// content set.
func (s *Searcher) InvalidateOwner(ctx context.Context, owner core.ID) error {
	prefix := ownerIdxPrefix + fmt.Sprintf("%016x", uint64(owner)) + ":"
	return s.invalidateByIndex(ctx, prefix)
}

func (s *Searcher) invalidateByIndex(ctx context.Context, prefix string) error {
	if s.cache == nil {
		return nil
	}

	indexKeys, err := s.cache.Keys(ctx, prefix)
	if err != nil {
		return err
	}

	for _, indexKey := range indexKeys {
		resultKey := strings.TrimPrefix(indexKey, prefix)
		if err := s.cache.Delete(ctx, resultKey, indexKey); err != nil {
			return err
		}
	}
	return nil
}
