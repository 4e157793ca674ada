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
	"runtime"
	"sync"
	"time"

	"github.com/calyptra/lectern/chunk"
	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/embed"
	"github.com/calyptra/lectern/storage"
	"github.com/calyptra/lectern/transcript"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Pipeline orchestrates content processing from source reference to
// embedded, searchable chunks. Events flow through the durable queue and
// workers drain it concurrently; work on a single content item is
// serialized.
type Pipeline struct {
	orch *orchestrator

	queue        storage.EventQueue
	pool         *ants.Pool
	pollInterval time.Duration
	maxDeliver   int
	retryBackoff time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup // dispatches submitted to the pool
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent event processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		p.orch.logger = logger
		return nil
	}
}

// WithPollInterval sets the idle sleep between empty queue polls.
// Default is 250ms.
func WithPollInterval(interval time.Duration) Option {
	return func(p *Pipeline) error {
		if interval > 0 {
			p.pollInterval = interval
		}
		return nil
	}
}

// WithMaxDeliveries sets the per-event delivery budget. The item is marked
// failed when the budget is exhausted by transient errors. This should
// match the queue's dead-letter threshold.
// Default is 3.
func WithMaxDeliveries(max int) Option {
	return func(p *Pipeline) error {
		if max > 0 {
			p.maxDeliver = max
		}
		return nil
	}
}

// WithRetryBackoff sets the base redelivery delay for transient failures.
// The delay doubles with each delivery attempt.
// Default is 5s.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(p *Pipeline) error {
		if backoff > 0 {
			p.retryBackoff = backoff
		}
		return nil
	}
}

// WithOwnerRate sets the per-owner provider call rate and burst.
// Default is 1 call/s with a burst of 4.
func WithOwnerRate(perSecond float64, burst int) Option {
	return func(p *Pipeline) error {
		if perSecond > 0 && burst > 0 {
			p.orch.limiters = newOwnerLimiters(perSecond, burst)
		}
		return nil
	}
}

// WithChunkConfig sets the chunking parameters.
func WithChunkConfig(cfg *chunk.Config) Option {
	return func(p *Pipeline) error {
		if cfg == nil {
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.orch.chunkConfig = cfg
		return nil
	}
}

// WithUsageRepository enables token/cost accounting.
func WithUsageRepository(usage storage.UsageRepository) Option {
	return func(p *Pipeline) error {
		p.orch.usage = usage
		return nil
	}
}

// WithCacheInvalidator wires search cache invalidation into the completion
// stage.
func WithCacheInvalidator(invalidator CacheInvalidator) Option {
	return func(p *Pipeline) error {
		p.orch.invalidator = invalidator
		return nil
	}
}

// NewPipeline creates a new processing pipeline.
func NewPipeline(
	content storage.ContentRepository,
	chunks storage.ChunkRepository,
	queue storage.EventQueue,
	source transcript.Source,
	embedClient *embed.Client,
	opts ...Option,
) (*Pipeline, error) {
	if content == nil {
		return nil, ErrContentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}
	if embedClient == nil {
		return nil, ErrEmbedClientRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	p := &Pipeline{
		orch: &orchestrator{
			content:     content,
			chunks:      chunks,
			queue:       queue,
			source:      source,
			embedClient: embedClient,
			chunkConfig: chunk.DefaultConfig(),
			locks:       newItemLocks(),
			limiters:    newOwnerLimiters(1, 4),
			logger:      logger,
		},
		queue:        queue,
		pool:         pool,
		pollInterval: 250 * time.Millisecond,
		maxDeliver:   3,
		retryBackoff: 5 * time.Second,
		logger:       logger,
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// ContentID derives the stable content item id for an owner's source
// reference. Submitting the same reference twice yields the same item.
func ContentID(owner core.ID, sourceRef string) core.ID {
	return core.IDFromContent(fmt.Sprintf("%d:%s", owner, sourceRef))
}

// SubmitForProcessing registers a source reference for processing and
// enqueues the extraction event. Submission is idempotent: resubmitting a
// reference that is already in flight or completed returns the existing id
// without enqueuing new work.
func (p *Pipeline) SubmitForProcessing(ctx context.Context, owner core.ID, sourceRef, title string) (core.ID, error) {
	if owner == 0 {
		return 0, core.ErrInvalidOwner
	}
	if sourceRef == "" {
		return 0, core.ErrEmptySourceRef
	}

	id := ContentID(owner, sourceRef)

	existing, err := p.orch.content.GetContentItem(ctx, id)
	if err == nil {
		if existing.Status != core.StatusFailed {
			return id, nil
		}
		// Failed items are resubmittable from scratch.
	} else if !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}

	item := &core.ContentItem{
		Id:        id,
		OwnerId:   owner,
		SourceRef: sourceRef,
		Title:     title,
		Status:    core.StatusPending,
	}
	if _, err := p.orch.content.UpsertContentItem(ctx, item); err != nil {
		return 0, err
	}

	err = p.queue.Enqueue(ctx, &core.PipelineEvent{
		Id:        uuid.NewString(),
		Kind:      core.KindExtractRequested,
		ContentId: id,
		OwnerId:   owner,
		SourceRef: sourceRef,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("content submitted", "content", id, "owner", owner, "source", sourceRef)
	return id, nil
}

// Reprocess re-runs completed or failed items. Items with a stored
// transcript re-enter at the chunking stage; items without one are
// re-extracted. Failures on individual items do not stop the rest; the
// returned error joins every per-item failure.
func (p *Pipeline) Reprocess(ctx context.Context, ids ...core.ID) error {
	var errs []error
	for _, id := range ids {
		if err := p.reprocessOne(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("content %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) reprocessOne(ctx context.Context, id core.ID) error {
	release := p.orch.locks.acquire(id)
	defer release()

	item, err := p.orch.content.GetContentItem(ctx, id)
	if err != nil {
		return err
	}
	if !item.Status.Terminal() {
		return ErrItemInFlight
	}

	event := &core.PipelineEvent{
		Id:        uuid.NewString(),
		ContentId: item.Id,
		OwnerId:   item.OwnerId,
		Reprocess: true,
		CreatedAt: time.Now().UTC(),
	}

	if item.Transcript != "" {
		if _, err := p.orch.content.TransitionStatus(ctx, id, core.StatusProcessing, nil); err != nil {
			return err
		}
		event.Kind = core.KindTranscriptReady
	} else {
		if _, err := p.orch.content.TransitionStatus(ctx, id, core.StatusTranscribing, nil); err != nil {
			return err
		}
		event.Kind = core.KindExtractRequested
		event.SourceRef = item.SourceRef
	}

	return p.queue.Enqueue(ctx, event)
}

// Start launches the queue polling loop. Events are dispatched to the
// worker pool; returns ErrAlreadyRunning if the pipeline is running.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.run(ctx)
	return nil
}

// Stop halts polling and waits for in-flight work to drain.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Release stops the pipeline if needed and frees the worker pool. The
// pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.Stop() //nolint:errcheck // stopping a stopped pipeline is fine
	p.pool.Release()
}

func (p *Pipeline) run(ctx context.Context) {
	// Waits for dispatched events to settle before signaling done, so Stop
	// never returns with a handler still running.
	defer close(p.done)
	defer p.wg.Wait()

	for {
		if ctx.Err() != nil {
			return
		}

		delivery, err := p.queue.Dequeue(ctx)
		if errors.Is(err, storage.ErrQueueEmpty) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}
		if err != nil {
			p.logger.Error("dequeue failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		p.wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer p.wg.Done()
			p.dispatch(ctx, delivery)
		})
		if submitErr != nil {
			p.wg.Done()
			p.logger.Error("submitting event to pool failed", "event", delivery.Event.Id, "err", submitErr)
			p.nack(delivery)
		}
	}
}

// dispatch runs the stage handler and settles the delivery. Permanent
// failures mark the item failed and ack; transient failures nack for
// redelivery with exponential backoff, failing the item when the delivery
// budget runs out.
func (p *Pipeline) dispatch(ctx context.Context, delivery *storage.Delivery) {
	event := delivery.Event
	err := p.orch.handle(ctx, event)

	switch {
	case err == nil:
		p.ack(event.Id)

	case errors.Is(err, storage.ErrStatusConflict):
		// The item already moved past this stage, typically a redelivery
		// racing a completed attempt. Nothing left to do.
		p.logger.Debug("event skipped", "event", event.Id, "kind", event.Kind.String(), "err", err)
		p.ack(event.Id)

	case permanentError(err):
		p.logger.Warn("permanent failure",
			"event", event.Id, "kind", event.Kind.String(), "content", event.ContentId, "err", err)
		p.markFailed(ctx, event.ContentId, err)
		p.ack(event.Id)

	default:
		if delivery.Attempt >= p.maxDeliver {
			p.logger.Error("delivery budget exhausted",
				"event", event.Id, "kind", event.Kind.String(), "content", event.ContentId,
				"attempts", delivery.Attempt, "err", err)
			p.markFailed(ctx, event.ContentId, err)
		} else {
			p.logger.Warn("transient failure, will retry",
				"event", event.Id, "kind", event.Kind.String(), "content", event.ContentId,
				"attempt", delivery.Attempt, "err", err)
		}
		p.nack(delivery)
	}
}

func (p *Pipeline) ack(eventId string) {
	if err := p.queue.Ack(context.Background(), eventId); err != nil {
		p.logger.Error("ack failed", "event", eventId, "err", err)
	}
}

func (p *Pipeline) nack(delivery *storage.Delivery) {
	backoff := p.retryBackoff
	for i := 1; i < delivery.Attempt && i < 6; i++ {
		backoff *= 2
	}
	if err := p.queue.Nack(context.Background(), delivery.Event.Id, backoff); err != nil {
		p.logger.Error("nack failed", "event", delivery.Event.Id, "err", err)
	}
}

func (p *Pipeline) markFailed(ctx context.Context, contentId core.ID, cause error) {
	_, err := p.orch.content.TransitionStatus(ctx, contentId, core.StatusFailed, func(it *core.ContentItem) error {
		it.ErrorMessage = cause.Error()
		return nil
	})
	if err != nil {
		p.logger.Error("marking content failed", "content", contentId, "err", err)
	}
}
