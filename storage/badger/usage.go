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
	"encoding/binary"
	"errors"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/storage"
	"github.com/dgraph-io/badger/v4"
)

// UsageRepository implements storage.UsageRepository on BadgerDB. Usage
// buckets accumulate tokens and cost per owner, UTC day, and operation;
// the view index feeds popularity and personalization ranking.
type UsageRepository struct {
	backend *Backend
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new UsageRepository.
//
// Returns storage.UsageRepository interface to enforce abstraction.
func NewUsageRepository(backend *Backend) (storage.UsageRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &UsageRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *UsageRepository) Close() error {
	return nil
}

// RecordUsage accumulates tokens and cost into the owner/day/operation
// bucket. Accumulation happens inside one transaction so concurrent
// recorders never lose increments.
func (r *UsageRepository) RecordUsage(ctx context.Context, record *core.UsageRecord) error {
	if record == nil || record.OwnerId == 0 {
		return core.ErrInvalidOwner
	}
	if record.Day == "" || record.Operation == "" {
		return errors.New("usage record requires day and operation")
	}

	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		key := makeUsageKey(record.OwnerId, record.Day, record.Operation)

		bucket := &core.UsageRecord{
			OwnerId:   record.OwnerId,
			Day:       record.Day,
			Operation: record.Operation,
		}
		item, err := tx.Get(key)
		if err == nil {
			err = item.Value(func(val []byte) error {
				existing, err := storage.UnmarshalUsageRecord(val)
				if err != nil {
					return err
				}
				bucket = existing
				return nil
			})
			if err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		bucket.Tokens += record.Tokens
		bucket.Cost += record.Cost
		bucket.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalUsageRecord(bucket)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetUsage retrieves the usage buckets for an owner on a UTC day.
func (r *UsageRepository) GetUsage(ctx context.Context, owner core.ID, day string) ([]*core.UsageRecord, error) {
	if owner == 0 {
		return nil, core.ErrInvalidOwner
	}

	var records []*core.UsageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialUsageKey(owner, day)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalUsageRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// RecordView notes that an owner consumed a content item and bumps the
// item's aggregate view count. Both writes land in one transaction.
func (r *UsageRepository) RecordView(ctx context.Context, owner, contentId core.ID) error {
	if owner == 0 {
		return core.ErrInvalidOwner
	}

	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		item, err := readContentItem(tx, contentId)
		if err != nil {
			return err
		}
		item.ViewCount++
		item.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeContentKey(item.Id), storage.MarshalContentItem(item)); err != nil {
			return err
		}

		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UTC().UnixMicro()))
		if err := tx.Set(makeViewKey(owner, contentId), ts[:]); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// GetViewedContent lists the content items an owner has consumed.
func (r *UsageRepository) GetViewedContent(ctx context.Context, owner core.ID) ([]core.ID, error) {
	if owner == 0 {
		return nil, core.ErrInvalidOwner
	}

	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialViewKey(owner)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			// The content id is the trailing 8 bytes of the composite key.
			id := binary.BigEndian.Uint64(key[len(key)-8:])
			ids = append(ids, core.ID(id))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
