package badger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/calyptra/lectern/storage"
	"github.com/dgraph-io/badger/v4"
)

// CacheStore implements storage.CacheStore on BadgerDB TTL entries.
// Expired entries are indistinguishable from missing ones.
type CacheStore struct {
	backend *Backend
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a new CacheStore.
//
// Returns storage.CacheStore interface to enforce abstraction.
func NewCacheStore(backend *Backend) (storage.CacheStore, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &CacheStore{backend: backend}, nil
}

// Close releases store resources.
func (s *CacheStore) Close() error {
	return nil
}

// Get returns the value for a key, or ErrNotFound for missing or expired
// keys.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value with a TTL. Last-writer-wins on identical keys.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.backend.WithTxRetry(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Delete removes the given keys. Missing keys are not an error.
func (s *CacheStore) Delete(ctx context.Context, keys ...string) error {
	return s.backend.WithTxRetry(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(makeCacheKey(key)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// DeleteByPrefix removes every key with the given prefix.
func (s *CacheStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.backend.WithTxRetry(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCacheKey(prefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Keys lists the live keys with the given prefix, without the store's
// internal namespace.
func (s *CacheStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCacheKey(prefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := string(iter.Item().Key())
			keys = append(keys, strings.TrimPrefix(key, cachePrefix+":"))
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
