package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/transcript"
)

// MockSource is a test double for transcript.Source.
type MockSource struct {
	// FetchFunc is called by Fetch if set.
	// If nil, returns a fixed transcript derived from the source ref.
	FetchFunc func(ctx context.Context, sourceRef string) (*transcript.Transcript, error)

	mu        sync.Mutex
	callCount int
}

var _ transcript.Source = (*MockSource)(nil)

// NewMockSource creates a mock transcript source.
func NewMockSource() *MockSource {
	return &MockSource{}
}

// Fetch returns an injected or deterministic transcript.
func (m *MockSource) Fetch(ctx context.Context, sourceRef string) (*transcript.Transcript, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, sourceRef)
	}

	text := "This is a mock transcript for " + sourceRef + ". It has several sentences. Each one is short."
	words := len(strings.Fields(text))
	return &transcript.Transcript{
		Text:            text,
		Method:          core.TranscriptMethodCaptions,
		DurationSeconds: float64(words), // one word per second
		Title:           "mock: " + sourceRef,
	}, nil
}

// CallCount returns the number of Fetch calls.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
