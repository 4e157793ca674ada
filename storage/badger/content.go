package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/storage"
	"github.com/dgraph-io/badger/v4"
)

// ContentRepository implements storage.ContentRepository for BadgerDB.
type ContentRepository struct {
	backend *Backend
}

var _ storage.ContentRepository = (*ContentRepository)(nil)

// NewContentRepository creates a new ContentRepository.
//
// Returns storage.ContentRepository interface to enforce abstraction.
func NewContentRepository(backend *Backend) (storage.ContentRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ContentRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ContentRepository) Close() error {
	return nil
}

// UpsertContentItem atomically inserts or overwrites a content item.
func (r *ContentRepository) UpsertContentItem(ctx context.Context, item *core.ContentItem) (*core.ContentItem, error) {
	if err := core.ValidateContentItem(item); err != nil {
		return nil, err
	}

	err := r.backend.WithTxRetry(func(tx *badger.Txn) error {
		old, err := readContentItem(tx, item.Id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := time.Now().UTC()
		if old != nil {
			item.InsertedAt = old.InsertedAt
		} else if item.InsertedAt.IsZero() {
			item.InsertedAt = now
		}
		item.UpdatedAt = now

		if err := tx.Set(makeContentKey(item.Id), storage.MarshalContentItem(item)); err != nil {
			return err
		}
		ownerKey := makeContentOwnerKey(item.OwnerId, item.Id)
		if err := tx.Set(ownerKey, storage.MarshalID(item.Id)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetContentItem retrieves a single content item by ID.
func (r *ContentRepository) GetContentItem(ctx context.Context, id core.ID) (*core.ContentItem, error) {
	var item *core.ContentItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		item, err = readContentItem(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetContentItemsByOwner retrieves all content items for an owner via the
// owner index.
func (r *ContentRepository) GetContentItemsByOwner(ctx context.Context, owner core.ID) ([]*core.ContentItem, error) {
	var items []*core.ContentItem
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialContentOwnerKey(owner)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			item, err := readContentItem(tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// TransitionStatus conditionally moves an item to the given status inside
// a single transaction, applying mutate before the write so status and
// payload change atomically with respect to readers.
func (r *ContentRepository) TransitionStatus(ctx context.Context, id core.ID, to core.Status, mutate func(*core.ContentItem) error) (*core.ContentItem, error) {
	var item *core.ContentItem
	err := r.backend.WithTxRetry(func(tx *badger.Txn) error {
		var err error
		item, err = readContentItem(tx, id)
		if err != nil {
			return err
		}

		if !item.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s -> %s for content %d",
				storage.ErrStatusConflict, item.Status, to, id)
		}

		item.Status = to
		if mutate != nil {
			if err := mutate(item); err != nil {
				return err
			}
		}
		item.UpdatedAt = time.Now().UTC()
		if to.Terminal() {
			item.ProcessedAt = item.UpdatedAt
		}

		if err := tx.Set(makeContentKey(item.Id), storage.MarshalContentItem(item)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteContentItem removes a content item, its owner-index entry, and
// all of its chunks in one transaction.
func (r *ContentRepository) DeleteContentItem(ctx context.Context, id core.ID) error {
	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		item, err := readContentItem(tx, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(makeContentKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeContentOwnerKey(item.OwnerId, id)); err != nil {
			return err
		}
		// Chunks are exclusively owned by their content item, so they go too.
		if err := deleteChunksTx(tx, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// readContentItem reads and unmarshals a content item inside a transaction.
func readContentItem(tx *badger.Txn, id core.ID) (*core.ContentItem, error) {
	badgerItem, err := tx.Get(makeContentKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var item *core.ContentItem
	err = badgerItem.Value(func(val []byte) error {
		var err error
		item, err = storage.UnmarshalContentItem(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
