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

import "errors"

var (
	// ErrContentRepositoryRequired is returned when a content repository is not provided.
	ErrContentRepositoryRequired = errors.New("content repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedClientRequired is returned when an embedding client is not provided.
	ErrEmbedClientRequired = errors.New("embedding client required")

	// ErrEmptyQuery is returned when the search query is empty.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrQueryEmbedding wraps embedding failures for the query text. A failed
	// search is distinguishable from an empty-but-successful one.
	ErrQueryEmbedding = errors.New("embedding search query failed")
)
