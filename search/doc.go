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


// Package search provides ranked semantic retrieval over embedded chunks.
//
// The Searcher type implements a multi-stage retrieval algorithm:
//   - Vector similarity search against the chunk store
//   - Weighted re-ranking by similarity, recency, popularity, and the
//     requesting owner's view history
//   - Greedy near-duplicate removal over chunk text
//   - TTL-bounded result caching with per-content invalidation indexes
//
// Cache failures degrade to misses and never fail a search; a failed
// query embedding surfaces as an error, distinguishable from an empty
// result set.
package search
