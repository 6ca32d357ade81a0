package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// MemoryStore is the reference Store implementation: an ordered collection
// guarded by a single RWMutex. It is safe for concurrent use by multiple
// goroutines. Data does not survive a restart; use RedisStore or BadgerStore
// for that.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets []dataset.Dataset
	opts     Options
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	opts = opts.withDefaults()
	return &MemoryStore{
		datasets: make([]dataset.Dataset, 0, opts.MaxDatasets+1),
		opts:     opts,
	}
}

// Save appends a new dataset and runs the eviction sweep under the write lock.
func (s *MemoryStore) Save(ctx context.Context, name string, summary dataset.Summary) (dataset.Dataset, error) {
	if name == "" {
		return dataset.Dataset{}, errEmptyName
	}
	if err := checkContext(ctx); err != nil {
		return dataset.Dataset{}, err
	}

	// Stamped under the lock so upload order matches insertion order.
	s.mu.Lock()
	ds := s.opts.newDataset(name, summary)
	s.datasets = append(s.datasets, ds)
	var evicted []string
	for len(s.datasets) > s.opts.MaxDatasets {
		i := oldestIndex(s.datasets, ds.ID)
		evicted = append(evicted, s.datasets[i].ID)
		s.datasets = append(s.datasets[:i], s.datasets[i+1:]...)
	}
	s.mu.Unlock()

	s.opts.notifyEvicted(evicted)
	return cloneDataset(ds), nil
}

// oldestIndex returns the position of the eviction victim, skipping keep.
func oldestIndex(datasets []dataset.Dataset, keep string) int {
	victim := -1
	for i, d := range datasets {
		if d.ID == keep {
			continue
		}
		if victim < 0 || d.Older(datasets[victim]) {
			victim = i
		}
	}
	return victim
}

// Get returns a copy of the dataset with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (dataset.Dataset, error) {
	if err := checkContext(ctx); err != nil {
		return dataset.Dataset{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.datasets {
		if d.ID == id {
			return cloneDataset(d), nil
		}
	}
	return dataset.Dataset{}, &dataset.NotFoundError{ID: id}
}

// ListRecent returns copies of the retained datasets, newest first.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]dataset.Dataset, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]dataset.Dataset, len(s.datasets))
	for i, d := range s.datasets {
		out[i] = cloneDataset(d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[j].Older(out[i]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a dataset by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.datasets {
		if d.ID == id {
			s.datasets = append(s.datasets[:i], s.datasets[i+1:]...)
			return nil
		}
	}
	return &dataset.NotFoundError{ID: id}
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of datasets currently stored.
// This method is primarily useful for testing and metrics.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

func cloneDataset(d dataset.Dataset) dataset.Dataset {
	d.Summary = cloneSummary(d.Summary)
	return d
}
