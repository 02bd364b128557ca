// Package photo stores person photos in an embedded BadgerDB keyed by person id.
package photo

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"persinteret/backend/internal/constants"
	apperrors "persinteret/backend/pkg/errors"
	"persinteret/backend/pkg/logger"
)

// Store is the key-value side store for photo blobs
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Options configures the underlying BadgerDB.
type Options struct {
	// Dir holds the data files. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites forces an fsync after each write.
	SyncWrites bool
}

// Open opens (or creates) the photo store
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	// Photos are larger than the default threshold; keep them in the value log.
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithValueThreshold(1024).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(32 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, apperrors.NewPhotoStoreFailed("open", "", err)
	}

	l := logger.Component("photo")
	l.Info("Photo store opened", zap.String("dir", opts.Dir), zap.Bool("in_memory", opts.InMemory))

	return &Store{db: db, logger: l}, nil
}

// OpenInMemory opens a throwaway store, mainly for tests
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

// Close flushes and closes the store
func (s *Store) Close() error {
	return s.db.Close()
}

func photoKey(personID string) []byte {
	return []byte(constants.PhotoKeyPrefix + personID)
}

// Put stores data as the photo of personID, replacing any previous one
func (s *Store) Put(ctx context.Context, personID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if personID == "" {
		return apperrors.ErrMissingID
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(photoKey(personID), data)
	})
	if err != nil {
		return apperrors.NewPhotoStoreFailed("put", personID, err)
	}

	s.logger.Debug("Photo stored", zap.String("person_id", personID), zap.Int("bytes", len(data)))
	return nil
}

// Get returns the photo of personID, or nil when none is stored
func (s *Store) Get(ctx context.Context, personID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(photoKey(personID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPhotoStoreFailed("get", personID, err)
	}
	return data, nil
}

// Delete removes the photo of personID. Deleting a missing photo is not an error.
func (s *Store) Delete(ctx context.Context, personID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(photoKey(personID))
	})
	if err != nil {
		return apperrors.NewPhotoStoreFailed("delete", personID, err)
	}
	return nil
}

// DeleteAll removes every photo
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := s.keys(ctx)
	if err != nil {
		return apperrors.NewPhotoStoreFailed("delete all", "", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return apperrors.NewPhotoStoreFailed("delete all", "", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return apperrors.NewPhotoStoreFailed("delete all", "", err)
	}

	s.logger.Warn("All photos deleted", zap.Int("count", len(keys)))
	return nil
}

func (s *Store) keys(ctx context.Context) ([][]byte, error) {
	var keys [][]byte
	err := s.scan(ctx, func(key []byte) {
		keys = append(keys, append([]byte{}, key...))
	})
	return keys, err
}

func (s *Store) scan(ctx context.Context, fn func(key []byte)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(constants.PhotoKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(it.Item().Key())
		}
		return nil
	})
}

// Count returns the number of stored photos. Only keys are scanned.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	if err := s.scan(ctx, func([]byte) { count++ }); err != nil {
		return 0, apperrors.NewPhotoStoreFailed("count", "", err)
	}
	return count, nil
}
