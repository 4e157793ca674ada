package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent(kind EventKind) *PipelineEvent {
	e := &PipelineEvent{
		Id:        "event-1",
		Kind:      kind,
		ContentId: 42,
		OwnerId:   7,
		CreatedAt: time.Now().UTC(),
	}
	if kind == KindExtractRequested {
		e.SourceRef = "https://www.youtube.com/watch?v=abc"
	}
	return e
}

func TestEventValidate(t *testing.T) {
	for _, kind := range []EventKind{KindExtractRequested, KindTranscriptReady, KindChunksReady} {
		t.Run(kind.String(), func(t *testing.T) {
			require.NoError(t, validEvent(kind).Validate())
		})
	}
}

func TestEventValidateRejectsMalformed(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		e := validEvent(KindExtractRequested)
		e.Kind = EventKind(99)
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})

	t.Run("missing id", func(t *testing.T) {
		e := validEvent(KindChunksReady)
		e.Id = ""
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})

	t.Run("missing content id", func(t *testing.T) {
		e := validEvent(KindTranscriptReady)
		e.ContentId = 0
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})

	t.Run("missing owner", func(t *testing.T) {
		e := validEvent(KindTranscriptReady)
		e.OwnerId = 0
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})

	t.Run("extract without source ref", func(t *testing.T) {
		e := validEvent(KindExtractRequested)
		e.SourceRef = ""
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})

	t.Run("source ref on later stage", func(t *testing.T) {
		e := validEvent(KindChunksReady)
		e.SourceRef = "https://example.com/video"
		assert.ErrorIs(t, e.Validate(), ErrInvalidEvent)
	})
}

func TestIDFromContentDeterministic(t *testing.T) {
	a := IDFromContent("7:https://www.youtube.com/watch?v=abc")
	b := IDFromContent("7:https://www.youtube.com/watch?v=abc")
	c := IDFromContent("8:https://www.youtube.com/watch?v=abc")

	assert.Equal(t, a, b, "same content must hash to the same id")
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}
