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


package embed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/calyptra/lectern/ai"
	"github.com/calyptra/lectern/ai/mock"
	"github.com/calyptra/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(batchSize int) *Config {
	return &Config{
		BatchSize:      batchSize,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func makeChunks(n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := 0; i < n; i++ {
		chunks[i] = &core.Chunk{ContentId: 1, Index: i, Text: fmt.Sprintf("chunk text %d", i)}
	}
	return chunks
}

func TestNewClientZeroConfigUsesDefaults(t *testing.T) {
	// A zero Config normalizes to the defaults instead of reaching the
	// batching arithmetic with a zero batch size.
	client, err := NewClient(mock.NewMockEmbedder(), &Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().BatchSize, client.config.BatchSize)

	result, err := client.EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	assert.Len(t, result.Embeddings, 2)
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(mock.NewMockEmbedder(), &Config{BatchSize: -1})
	assert.Error(t, err)

	_, err = NewClient(mock.NewMockEmbedder(), &Config{RetryDelay: -time.Second})
	assert.Error(t, err)
}

func TestEmbedChunksBatching(t *testing.T) {
	// 45 chunks with batch_size=20 must issue exactly 3 provider calls
	// (20, 20, 5) and return 45 vectors in input order.
	var mu sync.Mutex
	var batchSizes []int

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
		mu.Lock()
		batchSizes = append(batchSizes, len(texts))
		mu.Unlock()

		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, &ai.EmbedUsage{Tokens: int64(len(texts)), Cost: 0.001, Model: "mock"}, nil
	}

	client, err := NewClient(embedder, fastConfig(20))
	require.NoError(t, err)

	result, err := client.EmbedChunks(context.Background(), makeChunks(45))
	require.NoError(t, err)

	assert.Equal(t, []int{20, 20, 5}, batchSizes)
	require.Len(t, result.Embeddings, 45)

	// Vectors come back in input order.
	for i := 0; i < 45; i++ {
		expected := NormalizeVector(mock.DeterministicVector(fmt.Sprintf("chunk text %d", i), 8))
		assert.Equal(t, expected, result.Embeddings[i], "vector %d out of order", i)
	}

	// Usage sums across batches.
	assert.Equal(t, int64(45), result.TotalTokens)
	assert.InDelta(t, 0.003, result.TotalCost, 1e-9)
	assert.Equal(t, "mock", result.Model)
}

func TestEmbedTextsRetriesTransientFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n < 3 {
			return nil, nil, ai.ErrRateLimited
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0}
		}
		return vectors, &ai.EmbedUsage{Tokens: 1}, nil
	}

	client, err := NewClient(embedder, fastConfig(10))
	require.NoError(t, err)

	result, err := client.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "rate-limited batch should be retried")
	assert.Len(t, result.Embeddings, 2)
}

func TestEmbedTextsFailsAfterRetryExhaustion(t *testing.T) {
	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
		calls++
		return nil, nil, ai.ErrUnavailable
	}

	client, err := NewClient(embedder, fastConfig(10))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrUnavailable)
	assert.Equal(t, 3, calls, "should attempt exactly MaxRetries times")
}

func TestEmbedTextsPermanentErrorNotRetried(t *testing.T) {
	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
		calls++
		return nil, nil, ai.ErrInvalidInput
	}

	client, err := NewClient(embedder, fastConfig(10))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, *ai.EmbedUsage, error) {
		return [][]float32{{1}}, nil, nil // one vector for two texts
	}

	client, err := NewClient(embedder, fastConfig(10))
	require.NoError(t, err)

	_, err = client.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrCountMismatch)
}

func TestEmbedQueryNormalizes(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, *ai.EmbedUsage, error) {
		return []float32{3, 4}, &ai.EmbedUsage{Tokens: 2}, nil
	}

	client, err := NewClient(embedder, fastConfig(10))
	require.NoError(t, err)

	vector, usage, err := client.EmbedQuery(context.Background(), "refund policy")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, vector[0], 1e-6)
	assert.InDelta(t, 0.8, vector[1], 1e-6)
	assert.Equal(t, int64(2), usage.Tokens)
}

func TestNewClientRequiresEmbedder(t *testing.T) {
	_, err := NewClient(nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}
