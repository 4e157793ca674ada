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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calyptra/lectern/ai"
	"github.com/calyptra/lectern/chunk"
	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/embed"
	"github.com/calyptra/lectern/storage"
	"github.com/calyptra/lectern/transcript"
	"github.com/google/uuid"
)

// CacheInvalidator drops cached search results that may reference a content
// item. The search package provides the production implementation.
type CacheInvalidator interface {
	InvalidateContent(ctx context.Context, contentId core.ID) error
	InvalidateOwner(ctx context.Context, owner core.ID) error
}

// orchestrator executes the per-stage work for pipeline events. Each stage
// is idempotent: redelivered events re-derive the same state.
type orchestrator struct {
	content     storage.ContentRepository
	chunks      storage.ChunkRepository
	queue       storage.EventQueue
	usage       storage.UsageRepository
	source      transcript.Source
	embedClient *embed.Client
	invalidator CacheInvalidator
	chunkConfig *chunk.Config
	locks       *itemLocks
	limiters    *ownerLimiters
	logger      *slog.Logger
}

// handle runs the stage for one event. The caller acks on nil, nacks on
// transient failure, and acks after marking the item failed on permanent
// failure.
func (o *orchestrator) handle(ctx context.Context, event *core.PipelineEvent) error {
	release := o.locks.acquire(event.ContentId)
	defer release()

	switch event.Kind {
	case core.KindExtractRequested:
		return o.handleExtract(ctx, event)
	case core.KindTranscriptReady:
		return o.handleTranscript(ctx, event)
	case core.KindChunksReady:
		return o.handleChunks(ctx, event)
	default:
		return fmt.Errorf("%w: unhandled kind %d", core.ErrInvalidEvent, event.Kind)
	}
}

// handleExtract fetches the transcript for an item and persists it.
func (o *orchestrator) handleExtract(ctx context.Context, event *core.PipelineEvent) error {
	item, err := o.content.GetContentItem(ctx, event.ContentId)
	if err != nil {
		return err
	}

	// Redelivery after the transcript already landed: skip straight to the
	// next stage.
	if item.Transcript != "" && item.Status != core.StatusPending && item.Status != core.StatusTranscribing {
		return o.enqueueNext(ctx, event, core.KindTranscriptReady)
	}

	if _, err := o.content.TransitionStatus(ctx, item.Id, core.StatusTranscribing, nil); err != nil {
		return err
	}

	if err := o.limiters.wait(ctx, event.OwnerId); err != nil {
		return err
	}

	fetched, err := o.source.Fetch(ctx, event.SourceRef)
	if err != nil {
		return fmt.Errorf("fetching transcript for %d: %w", item.Id, err)
	}
	if fetched.Text == "" {
		return fmt.Errorf("source %q: %w", event.SourceRef, transcript.ErrEmptyTranscript)
	}

	_, err = o.content.TransitionStatus(ctx, item.Id, core.StatusProcessing, func(it *core.ContentItem) error {
		it.Transcript = fetched.Text
		it.Segments = fetched.Segments
		it.Method = fetched.Method
		it.TranscriptCost = fetched.Cost
		it.DurationSeconds = fetched.DurationSeconds
		if it.Title == "" {
			it.Title = fetched.Title
		}
		it.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return err
	}

	if fetched.Cost > 0 {
		o.recordUsage(ctx, event.OwnerId, "transcription", 0, fetched.Cost)
	}

	o.logger.Info("transcript extracted",
		"content", item.Id, "method", fetched.Method, "words", chunk.CountWords(fetched.Text))

	return o.enqueueNext(ctx, event, core.KindTranscriptReady)
}

// handleTranscript splits the stored transcript into chunks and replaces
// the item's chunk set.
func (o *orchestrator) handleTranscript(ctx context.Context, event *core.PipelineEvent) error {
	item, err := o.content.GetContentItem(ctx, event.ContentId)
	if err != nil {
		return err
	}
	if item.Transcript == "" {
		return fmt.Errorf("content %d: %w", item.Id, core.ErrEmptyTranscript)
	}

	if _, err := o.content.TransitionStatus(ctx, item.Id, core.StatusProcessing, nil); err != nil {
		return err
	}

	chunks, err := chunk.Split(item.Transcript, item.Segments, item.DurationSeconds, o.chunkConfig)
	if err != nil {
		return fmt.Errorf("chunking content %d: %w", item.Id, err)
	}
	for _, c := range chunks {
		c.ContentId = item.Id
		c.OwnerId = item.OwnerId
	}

	// Delete-then-insert in one transaction keeps redelivery from
	// accumulating duplicate chunks.
	if err := o.chunks.ReplaceChunks(ctx, item.Id, chunks); err != nil {
		return err
	}

	o.logger.Info("transcript chunked", "content", item.Id, "chunks", len(chunks))

	return o.enqueueNext(ctx, event, core.KindChunksReady)
}

// handleChunks embeds the item's chunk set and completes the item.
func (o *orchestrator) handleChunks(ctx context.Context, event *core.PipelineEvent) error {
	item, err := o.content.GetContentItem(ctx, event.ContentId)
	if err != nil {
		return err
	}
	if item.Status == core.StatusCompleted {
		return nil
	}

	chunks, err := o.chunks.GetChunks(ctx, item.Id)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("content %d has no chunks: %w", item.Id, core.ErrInvalidChunk)
	}

	if _, err := o.content.TransitionStatus(ctx, item.Id, core.StatusEmbedding, nil); err != nil {
		return err
	}

	if err := o.limiters.wait(ctx, event.OwnerId); err != nil {
		return err
	}

	result, err := o.embedClient.EmbedChunks(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding content %d: %w", item.Id, err)
	}

	if err := o.chunks.SetChunkVectors(ctx, item.Id, result.Embeddings); err != nil {
		return err
	}

	o.recordUsage(ctx, event.OwnerId, "embedding", result.TotalTokens, result.TotalCost)
	o.invalidate(ctx, item)

	_, err = o.content.TransitionStatus(ctx, item.Id, core.StatusCompleted, func(it *core.ContentItem) error {
		it.EmbeddingTokens = result.TotalTokens
		it.EmbeddingCost = result.TotalCost
		it.EmbeddingModel = result.Model
		it.ErrorMessage = ""
		return nil
	})
	if err != nil {
		return err
	}

	o.logger.Info("content completed",
		"content", item.Id, "chunks", len(chunks),
		"tokens", result.TotalTokens, "duration", result.ProcessingTime)
	return nil
}

func (o *orchestrator) enqueueNext(ctx context.Context, prev *core.PipelineEvent, kind core.EventKind) error {
	return o.queue.Enqueue(ctx, &core.PipelineEvent{
		Id:        uuid.NewString(),
		Kind:      kind,
		ContentId: prev.ContentId,
		OwnerId:   prev.OwnerId,
		Reprocess: prev.Reprocess,
		CreatedAt: time.Now().UTC(),
	})
}

// recordUsage is best-effort: a failed metric write never fails the stage.
func (o *orchestrator) recordUsage(ctx context.Context, owner core.ID, operation string, tokens int64, cost float64) {
	if o.usage == nil {
		return
	}
	err := o.usage.RecordUsage(ctx, &core.UsageRecord{
		OwnerId:   owner,
		Day:       core.UsageDay(time.Now().UTC()),
		Operation: operation,
		Tokens:    tokens,
		Cost:      cost,
	})
	if err != nil {
		o.logger.Warn("recording usage failed", "owner", owner, "operation", operation, "err", err)
	}
}

// invalidate drops cached search results before the item becomes visible,
// so no reader can cache-hit stale results after completion.
func (o *orchestrator) invalidate(ctx context.Context, item *core.ContentItem) {
	if o.invalidator == nil {
		return
	}
	if err := o.invalidator.InvalidateContent(ctx, item.Id); err != nil {
		o.logger.Warn("cache invalidation failed", "content", item.Id, "err", err)
	}
	if err := o.invalidator.InvalidateOwner(ctx, item.OwnerId); err != nil {
		o.logger.Warn("cache invalidation failed", "owner", item.OwnerId, "err", err)
	}
}

// permanentError reports whether err can never succeed on retry. Transient
// provider and infrastructure errors return false and earn the event
// another delivery.
func permanentError(err error) bool {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, core.ErrInvalidContentItem),
		errors.Is(err, core.ErrInvalidChunk),
		errors.Is(err, core.ErrInvalidEvent),
		errors.Is(err, core.ErrEmptyTranscript),
		errors.Is(err, transcript.ErrNoTranscript),
		errors.Is(err, transcript.ErrEmptyTranscript),
		errors.Is(err, transcript.ErrUnsupportedSource),
		errors.Is(err, ai.ErrInvalidInput),
		errors.Is(err, chunk.ErrEmptyTranscript):
		return true
	}
	return false
}
