package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

var (
	badgerDatasetPrefix = []byte("dataset/")
	badgerIndexPrefix   = []byte("uploaded/")
)

// BadgerStore implements Store on an embedded BadgerDB for single-node
// deployments that need the history to survive restarts.
//
// Keys:
//
//	dataset/{id}                 -> dataset JSON
//	uploaded/{micros:020d}/{id}  -> empty, ordered by upload time then ID
//
// Writers are serialized by a mutex and each Save runs its eviction sweep in
// the same transaction, so Badger never reports a write conflict. Reads use
// View transactions and see a consistent snapshot.
type BadgerStore struct {
	db      *badger.DB
	opts    Options
	writeMu sync.Mutex
}

// OpenBadgerStore opens (or creates) a store in dir. An empty dir opens an
// in-memory database, which is mainly useful for tests.
func OpenBadgerStore(dir string, opts Options, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bopts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.With("component", "badger")})
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}

	return &BadgerStore{db: db, opts: opts.withDefaults()}, nil
}

func badgerDatasetKey(id string) []byte {
	return append(bytes.Clone(badgerDatasetPrefix), id...)
}

func badgerIndexKey(ds dataset.Dataset) []byte {
	return fmt.Appendf(bytes.Clone(badgerIndexPrefix), "%020d/%s", ds.UploadedAt.UnixMicro(), ds.ID)
}

// idFromIndexKey strips "uploaded/{micros}/" from an index key.
func idFromIndexKey(key []byte) string {
	rest := key[len(badgerIndexPrefix):]
	if i := bytes.IndexByte(rest, '/'); i >= 0 {
		return string(rest[i+1:])
	}
	return string(rest)
}

// Save writes the dataset and evicts the oldest entries in one transaction.
func (s *BadgerStore) Save(ctx context.Context, name string, summary dataset.Summary) (dataset.Dataset, error) {
	if name == "" {
		return dataset.Dataset{}, errEmptyName
	}
	if err := checkContext(ctx); err != nil {
		return dataset.Dataset{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ds := s.opts.newDataset(name, summary)
	data, err := json.Marshal(ds)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to marshal dataset: %w", err)
	}

	var evicted []string
	err = s.db.Update(func(txn *badger.Txn) error {
		existing := indexKeys(txn)

		if err := txn.Set(badgerDatasetKey(ds.ID), data); err != nil {
			return err
		}
		if err := txn.Set(badgerIndexKey(ds), nil); err != nil {
			return err
		}

		// existing is oldest first and never contains the new dataset.
		for n := len(existing) + 1; n > s.opts.MaxDatasets; n-- {
			victim := existing[0]
			existing = existing[1:]
			id := idFromIndexKey(victim)
			if err := txn.Delete(victim); err != nil {
				return err
			}
			if err := txn.Delete(badgerDatasetKey(id)); err != nil {
				return err
			}
			evicted = append(evicted, id)
		}
		return nil
	})
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to store dataset in badger: %w", err)
	}

	s.opts.notifyEvicted(evicted)
	return cloneDataset(ds), nil
}

// indexKeys returns every index key in ascending (oldest first) order.
func indexKeys(txn *badger.Txn) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = badgerIndexPrefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.ValidForPrefix(badgerIndexPrefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// Get retrieves one dataset by ID.
func (s *BadgerStore) Get(ctx context.Context, id string) (dataset.Dataset, error) {
	if err := checkContext(ctx); err != nil {
		return dataset.Dataset{}, err
	}

	var ds dataset.Dataset
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ds, err = getDataset(txn, id)
		return err
	})
	return ds, err
}

func getDataset(txn *badger.Txn, id string) (dataset.Dataset, error) {
	item, err := txn.Get(badgerDatasetKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return dataset.Dataset{}, &dataset.NotFoundError{ID: id}
	}
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to get dataset from badger: %w", err)
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("failed to read dataset value: %w", err)
	}
	return decodeDataset(data)
}

// ListRecent walks the index backwards inside one read transaction.
func (s *BadgerStore) ListRecent(ctx context.Context, limit int) ([]dataset.Dataset, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	var out []dataset.Dataset
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = badgerIndexPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(bytes.Clone(badgerIndexPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(badgerIndexPrefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			ds, err := getDataset(txn, idFromIndexKey(it.Item().Key()))
			if err != nil {
				return err
			}
			out = append(out, ds)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes one dataset and its index entry.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		ds, err := getDataset(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(badgerIndexKey(ds)); err != nil {
			return err
		}
		return txn.Delete(badgerDatasetKey(id))
	})
}

// Ping reports an error once the database has been closed.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close flushes and closes the database. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// badgerLogger routes Badger's printf-style logging into slog.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(fmt.Sprintf(format, args...))
}
