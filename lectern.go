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


package lectern

import (
	"log/slog"

	"github.com/calyptra/lectern/ai"
	"github.com/calyptra/lectern/ai/openai"
	"github.com/calyptra/lectern/embed"
	"github.com/calyptra/lectern/pipeline"
	"github.com/calyptra/lectern/search"
	"github.com/calyptra/lectern/storage"
	"github.com/calyptra/lectern/storage/badger"
	"github.com/calyptra/lectern/transcript"
	"github.com/calyptra/lectern/transcript/youtube"
)

// Library bundles the storage backend, embedding client, and content
// source into one handle with a shared lifecycle. It is the composition
// root; components remain independently constructable for callers that
// need finer control.
type Library struct {
	stores      *badger.Stores
	source      transcript.Source
	embedClient *embed.Client
	logger      *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig    *ai.Config
	embedConfig *embed.Config
	source      transcript.Source
	inMemory    bool
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEmbedConfig sets the embedding batching and retry configuration.
func WithEmbedConfig(config *embed.Config) LibraryOption {
	return func(o *libraryOptions) {
		if config != nil {
			o.embedConfig = config
		}
	}
}

// WithTranscriptSource overrides the transcript source.
// Default is the YouTube caption source.
func WithTranscriptSource(source transcript.Source) LibraryOption {
	return func(o *libraryOptions) {
		if source != nil {
			o.source = source
		}
	}
}

// WithInMemoryStorage keeps all state in memory. Useful for tests and
// throwaway runs; filePath is ignored.
func WithInMemoryStorage() LibraryOption {
	return func(o *libraryOptions) {
		o.inMemory = true
	}
}

// NewLibrary opens the storage backend at filePath and wires the default
// component stack.
func NewLibrary(filePath string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig:    ai.DefaultConfig(),
		embedConfig: embed.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var stores *badger.Stores
	var err error
	if options.inMemory {
		stores, err = badger.NewMemoryStores()
	} else {
		stores, err = badger.NewStores(filePath)
	}
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		stores.Close()
		return nil, err
	}

	embedClient, err := embed.NewClient(embedder, options.embedConfig)
	if err != nil {
		stores.Close()
		return nil, err
	}

	source := options.source
	if source == nil {
		source = youtube.NewSource()
	}

	return &Library{
		stores:      stores,
		source:      source,
		embedClient: embedClient,
		logger:      slog.Default(),
	}, nil
}

// Close releases the storage backend.
func (l *Library) Close() error {
	if err := l.stores.Close(); err != nil {
		l.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}

func (l *Library) ContentRepository() storage.ContentRepository {
	return l.stores.Content
}

func (l *Library) ChunkRepository() storage.ChunkRepository {
	return l.stores.Chunks
}

func (l *Library) CacheStore() storage.CacheStore {
	return l.stores.Cache
}

func (l *Library) EventQueue() storage.EventQueue {
	return l.stores.Queue
}

func (l *Library) UsageRepository() storage.UsageRepository {
	return l.stores.Usage
}

// NewSearcher constructs a searcher over the library's stores, with
// caching and personalization wired in.
func (l *Library) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithCacheStore(l.stores.Cache),
		search.WithUsageRepository(l.stores.Usage),
	}
	return search.NewSearcher(l.stores.Content, l.stores.Chunks, l.embedClient,
		append(base, opts...)...)
}

// NewPipeline constructs a processing pipeline over the library's stores.
// The searcher's cache is invalidated on content completion.
func (l *Library) NewPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	searcher, err := l.NewSearcher()
	if err != nil {
		return nil, err
	}
	base := []pipeline.Option{
		pipeline.WithUsageRepository(l.stores.Usage),
		pipeline.WithCacheInvalidator(searcher),
	}
	return pipeline.NewPipeline(
		l.stores.Content, l.stores.Chunks, l.stores.Queue,
		l.source, l.embedClient,
		append(base, opts...)...)
}
