// Package storage provides dataset stores that enforce the retention bound:
// at most MaxDatasets datasets exist after any completed Save, the oldest
// being evicted first.
package storage

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// DefaultMaxDatasets is the number of datasets retained when Options leave it unset.
const DefaultMaxDatasets = 5

var errEmptyName = errors.New("dataset name cannot be empty")

// Store persists datasets and enforces retention.
//
// Save and the eviction sweep it triggers are one atomic unit with respect to
// every other call. Get and ListRecent observe a consistent snapshot.
type Store interface {
	// Save creates a dataset with a fresh ID and timestamp, then evicts the
	// oldest datasets until at most MaxDatasets remain. The returned dataset
	// is never evicted by its own Save.
	Save(ctx context.Context, name string, summary dataset.Summary) (dataset.Dataset, error)

	// Get returns the dataset with the given ID, or a *dataset.NotFoundError.
	Get(ctx context.Context, id string) (dataset.Dataset, error)

	// ListRecent returns datasets newest first, truncated to limit.
	// A limit <= 0 returns every retained dataset.
	ListRecent(ctx context.Context, limit int) ([]dataset.Dataset, error)

	// Delete removes a dataset explicitly, or returns a *dataset.NotFoundError.
	Delete(ctx context.Context, id string) error

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
}

// Options configures retention and identity for every Store implementation.
type Options struct {
	// MaxDatasets bounds the store size. Values < 1 use DefaultMaxDatasets.
	MaxDatasets int

	// Now returns the upload timestamp. Defaults to time.Now.
	Now func() time.Time

	// NewID returns a fresh dataset ID. Defaults to UUIDv7 strings, which sort
	// by creation time.
	NewID func() string

	// OnEvict, if set, receives the IDs evicted by a Save after it completes.
	OnEvict func(ids []string)
}

func (o Options) withDefaults() Options {
	if o.MaxDatasets < 1 {
		o.MaxDatasets = DefaultMaxDatasets
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	return o
}

// newDataset stamps a dataset. Timestamps are kept at microsecond precision
// so every backend orders them identically.
func (o Options) newDataset(name string, summary dataset.Summary) dataset.Dataset {
	return dataset.Dataset{
		ID:         o.NewID(),
		Name:       name,
		UploadedAt: o.Now().UTC().Truncate(time.Microsecond),
		Summary:    cloneSummary(summary),
	}
}

func (o Options) notifyEvicted(ids []string) {
	if o.OnEvict != nil && len(ids) > 0 {
		o.OnEvict(ids)
	}
}

// cloneSummary copies the distribution map so stored datasets cannot be
// mutated through a caller's reference.
func cloneSummary(s dataset.Summary) dataset.Summary {
	s.TypeDistribution = maps.Clone(s.TypeDistribution)
	return s
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
