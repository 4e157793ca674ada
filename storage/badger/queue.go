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

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/storage"
	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
)

const defaultMaxAttempts = 3

// EventQueue implements storage.EventQueue on BadgerDB. Ready events live
// under a time-ordered key prefix; claimed events move to an in-flight
// prefix until acked or nacked; exhausted events land in the dead-letter
// prefix.
type EventQueue struct {
	backend     *Backend
	maxAttempts int
	logger      *slog.Logger
}

var _ storage.EventQueue = (*EventQueue)(nil)

// QueueOption configures an EventQueue.
type QueueOption func(*EventQueue)

// WithMaxAttempts sets the per-event delivery budget before dead-lettering.
// Default is 3.
func WithMaxAttempts(max int) QueueOption {
	return func(q *EventQueue) {
		if max > 0 {
			q.maxAttempts = max
		}
	}
}

// NewEventQueue creates a new EventQueue.
//
// Returns storage.EventQueue interface to enforce abstraction.
func NewEventQueue(backend *Backend, opts ...QueueOption) (storage.EventQueue, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	q := &EventQueue{
		backend:     backend,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default().With("component", "event-queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Close releases queue resources.
func (q *EventQueue) Close() error {
	return nil
}

// envelope pairs an event with its delivery attempt count. The count is
// queue state, not event state: the event itself is never mutated.
type envelope struct {
	attempts int
	event    *core.PipelineEvent
}

func marshalEnvelope(env *envelope) []byte {
	eventBytes := storage.MarshalPipelineEvent(env.event)
	buf := make([]byte, varint.Int.Size(env.attempts)+len(eventBytes))
	n := varint.Int.Marshal(env.attempts, buf)
	copy(buf[n:], eventBytes)
	return buf
}

func unmarshalEnvelope(data []byte) (*envelope, error) {
	attempts, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	event, err := storage.UnmarshalPipelineEvent(data[n:])
	if err != nil {
		return nil, err
	}
	return &envelope{attempts: attempts, event: event}, nil
}

// Enqueue durably appends events for immediate delivery.
func (q *EventQueue) Enqueue(ctx context.Context, events ...*core.PipelineEvent) error {
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	return q.backend.WithTxRetry(func(tx *badger.Txn) error {
		for _, event := range events {
			key := makeQueueReadyKey(now, event.Id)
			value := marshalEnvelope(&envelope{attempts: 0, event: event})
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Dequeue claims the earliest ready event. The claim moves the envelope
// to the in-flight prefix with its attempt count incremented; the badger
// transaction conflict check keeps two workers from claiming one event.
func (q *EventQueue) Dequeue(ctx context.Context) (*storage.Delivery, error) {
	var delivery *storage.Delivery
	err := q.backend.WithTxRetry(func(tx *badger.Txn) error {
		delivery = nil

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queueReadyPrefix + ":")
		iter := tx.NewIterator(opts)

		var key []byte
		var env *envelope
		now := time.Now().UTC()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			// Keys sort by ready time: the first unready key ends the scan.
			if queueReadyAt(item.Key()).After(now) {
				break
			}
			key = item.KeyCopy(nil)
			err := item.Value(func(val []byte) error {
				var err error
				env, err = unmarshalEnvelope(val)
				return err
			})
			if err != nil {
				iter.Close()
				return err
			}
			break
		}
		iter.Close()

		if env == nil {
			return storage.ErrQueueEmpty
		}

		env.attempts++
		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Set(makeQueueClaimedKey(env.event.Id), marshalEnvelope(env)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		delivery = &storage.Delivery{Event: env.event, Attempt: env.attempts}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// Ack removes a claimed event.
func (q *EventQueue) Ack(ctx context.Context, eventId string) error {
	return q.backend.WithTxRetry(func(tx *badger.Txn) error {
		key := makeQueueClaimedKey(eventId)
		if _, err := tx.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotClaimed
		} else if err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Nack reschedules a claimed event for redelivery after backoff, or
// dead-letters it once the attempt budget is exhausted.
func (q *EventQueue) Nack(ctx context.Context, eventId string, backoff time.Duration) error {
	return q.backend.WithTxRetry(func(tx *badger.Txn) error {
		key := makeQueueClaimedKey(eventId)
		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotClaimed
		}
		if err != nil {
			return err
		}

		var env *envelope
		err = item.Value(func(val []byte) error {
			var err error
			env, err = unmarshalEnvelope(val)
			return err
		})
		if err != nil {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}

		if env.attempts >= q.maxAttempts {
			q.logger.Warn("dead-lettering event",
				"event", eventId, "kind", env.event.Kind.String(), "attempts", env.attempts)
			if err := tx.Set(makeQueueDeadKey(eventId), marshalEnvelope(env)); err != nil {
				return err
			}
			return tx.Commit()
		}

		readyAt := time.Now().UTC().Add(backoff)
		if err := tx.Set(makeQueueReadyKey(readyAt, eventId), marshalEnvelope(env)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// DeadLetters lists events that exhausted their retry budget.
func (q *EventQueue) DeadLetters(ctx context.Context) ([]*core.PipelineEvent, error) {
	var events []*core.PipelineEvent
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queueDeadPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var env *envelope
			err := iter.Item().Value(func(val []byte) error {
				var err error
				env, err = unmarshalEnvelope(val)
				return err
			})
			if err != nil {
				return err
			}
			events = append(events, env.event)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return events, nil
}
