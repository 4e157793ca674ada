package storage

import (
	"testing"

	"github.com/calyptra/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResultsRoundTrip(t *testing.T) {
	results := []core.SearchResult{
		{
			Chunk: core.Chunk{
				ContentId:    1,
				OwnerId:      10,
				Index:        0,
				Text:         "first chunk",
				StartSeconds: 0,
				EndSeconds:   30,
				WordCount:    2,
				Vector:       []float32{0.6, 0.8},
			},
			Score:      0.91,
			Similarity: 0.87,
		},
		{
			Chunk: core.Chunk{
				ContentId: 2,
				OwnerId:   10,
				Index:     3,
				Text:      "second chunk",
				WordCount: 2,
			},
			Score:      0.42,
			Similarity: 0.42,
		},
	}

	data := MarshalSearchResults(results)
	decoded, err := UnmarshalSearchResults(data)
	require.NoError(t, err)
	assert.Equal(t, results, decoded)
}

func TestSearchResultsRoundTrip_Empty(t *testing.T) {
	data := MarshalSearchResults(nil)
	decoded, err := UnmarshalSearchResults(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestUnmarshalSearchResults_Truncated(t *testing.T) {
	data := MarshalSearchResults([]core.SearchResult{
		{Chunk: core.Chunk{ContentId: 1, Index: 0, Text: "chunk"}, Score: 1},
	})
	_, err := UnmarshalSearchResults(data[:len(data)-3])
	assert.Error(t, err)
}

func TestIDRoundTrip(t *testing.T) {
	data := MarshalID(core.ID(1234567890))
	id, err := UnmarshalID(data)
	require.NoError(t, err)
	assert.Equal(t, core.ID(1234567890), id)
}
