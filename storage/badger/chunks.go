package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/calyptra/lectern/core"
	"github.com/calyptra/lectern/embed"
	"github.com/calyptra/lectern/storage"
	"github.com/dgraph-io/badger/v4"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
//
// Returns storage.ChunkRepository interface to enforce abstraction.
func NewChunkRepository(backend *Backend) (storage.ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *ChunkRepository) Close() error {
	return nil
}

// ReplaceChunks transactionally replaces the full chunk set for a content
// item. Delete-then-insert inside one transaction: readers see either the
// old complete set or the new complete set, never a mix.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, contentId core.ID, chunks []*core.Chunk) error {
	if err := core.ValidateChunkSet(chunks); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.ContentId != contentId {
			return fmt.Errorf("%w: chunk content id %d does not match %d",
				core.ErrInvalidChunk, chunk.ContentId, contentId)
		}
	}

	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		if err := deleteChunksTx(tx, contentId); err != nil {
			return err
		}
		for _, chunk := range chunks {
			key := makeChunkKey(contentId, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// GetChunks retrieves the chunk set for a content item, ordered by index.
// The BigEndian index suffix in the key makes iteration order the chunk
// order.
func (r *ChunkRepository) GetChunks(ctx context.Context, contentId core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(contentId)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// SetChunkVectors writes one vector per chunk in a single transaction.
// All or nothing: a count mismatch writes no vectors at all.
func (r *ChunkRepository) SetChunkVectors(ctx context.Context, contentId core.ID, vectors [][]float32) error {
	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		chunks, err := readChunksTx(tx, contentId)
		if err != nil {
			return err
		}
		if len(chunks) != len(vectors) {
			return fmt.Errorf("%w: %d chunks, %d vectors",
				storage.ErrVectorCountMismatch, len(chunks), len(vectors))
		}
		for i, chunk := range chunks {
			chunk.Vector = vectors[i]
			key := makeChunkKey(contentId, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// DeleteChunks removes all chunks for a content item.
func (r *ChunkRepository) DeleteChunks(ctx context.Context, contentId core.ID) error {
	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		if err := deleteChunksTx(tx, contentId); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// FindSimilar scans chunk vectors and returns matches above the threshold,
// ordered by similarity. With a ContentIds restriction only those items'
// chunk prefixes are scanned.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, opts storage.SimilarityOptions) ([]*core.SimilarityMatch, error) {
	var results []*core.SimilarityMatch

	collect := func(chunk *core.Chunk) {
		if len(chunk.Vector) == 0 {
			return
		}
		if opts.OwnerId != 0 && chunk.OwnerId != opts.OwnerId {
			return
		}
		// Normalized vectors make cosine similarity a dot product.
		similarity := embed.DotProduct(vector, chunk.Vector)
		if similarity >= opts.MinSimilarity {
			results = append(results, &core.SimilarityMatch{
				Chunk:      chunk,
				Similarity: similarity,
			})
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if len(opts.ContentIds) > 0 {
			for _, id := range opts.ContentIds {
				chunks, err := readChunksTx(tx, id)
				if err != nil {
					return err
				}
				for _, chunk := range chunks {
					collect(chunk)
				}
			}
			return nil
		}

		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			collect(chunk)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// readChunksTx reads a content item's chunks inside a transaction.
func readChunksTx(tx *badger.Txn, contentId core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(contentId)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunk *core.Chunk
		err := iter.Item().Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// deleteChunksTx deletes a content item's chunks inside a transaction.
func deleteChunksTx(tx *badger.Txn, contentId core.ID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(contentId)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
