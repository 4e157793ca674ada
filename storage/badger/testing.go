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


package badger

import "github.com/calyptra/lectern/storage"

// Stores bundles every storage interface backed by one Backend.
type Stores struct {
	Content storage.ContentRepository
	Chunks  storage.ChunkRepository
	Cache   storage.CacheStore
	Queue   storage.EventQueue
	Usage   storage.UsageRepository

	backend *Backend
}

// Backend exposes the underlying backend, mainly for lifecycle checks.
func (s *Stores) Backend() *Backend {
	return s.backend
}

// Close closes the shared backend. Individual stores hold no resources of
// their own.
func (s *Stores) Close() error {
	return s.backend.Close()
}

// NewStores opens a Backend at filePath and constructs every store on it.
func NewStores(filePath string, queueOpts ...QueueOption) (*Stores, error) {
	return newStores(filePath, false, queueOpts...)
}

// NewMemoryStores constructs every store on an in-memory Backend. Used by
// tests and by ephemeral pipelines that need no persistence.
func NewMemoryStores(queueOpts ...QueueOption) (*Stores, error) {
	return newStores("", true, queueOpts...)
}

func newStores(filePath string, inMemory bool, queueOpts ...QueueOption) (*Stores, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	content, err := NewContentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	chunks, err := NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	cache, err := NewCacheStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	queue, err := NewEventQueue(backend, queueOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	usage, err := NewUsageRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Stores{
		Content: content,
		Chunks:  chunks,
		Cache:   cache,
		Queue:   queue,
		Usage:   usage,
		backend: backend,
	}, nil
}
