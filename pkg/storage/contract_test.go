package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

// newStoreFunc builds a fresh, empty store for one subtest.
type newStoreFunc func(t *testing.T, opts Options) Store

// testClock hands out strictly increasing timestamps, one second apart.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("ds-%04d", n.Add(1)) }
}

func testSummary(count int) dataset.Summary {
	return dataset.Summary{
		Count:            count,
		AvgFlowrate:      10.5,
		AvgPressure:      2.25,
		AvgTemperature:   98.6,
		TypeDistribution: map[string]int{"Pump": count},
	}
}

func runStoreContract(t *testing.T, newStore newStoreFunc) {
	t.Run("save and get", func(t *testing.T) {
		store := newStore(t, Options{NewID: sequentialIDs(), Now: newTestClock().Now})
		ctx := context.Background()

		saved, err := store.Save(ctx, "pumps.csv", testSummary(3))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if saved.ID == "" {
			t.Fatal("Save() returned empty ID")
		}
		if saved.Name != "pumps.csv" {
			t.Errorf("Name = %q, want %q", saved.Name, "pumps.csv")
		}

		got, err := store.Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.ID != saved.ID || got.Name != saved.Name || !got.UploadedAt.Equal(saved.UploadedAt) {
			t.Errorf("Get() = %+v, want %+v", got, saved)
		}
		if got.Summary.Count != 3 || got.Summary.TypeDistribution["Pump"] != 3 {
			t.Errorf("Get() summary = %+v", got.Summary)
		}
		if got.Summary.AvgPressure != 2.25 {
			t.Errorf("AvgPressure = %v, want 2.25", got.Summary.AvgPressure)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		store := newStore(t, Options{})
		if _, err := store.Save(context.Background(), "", testSummary(1)); err == nil {
			t.Fatal("Save() with empty name should fail")
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		store := newStore(t, Options{})
		_, err := store.Get(context.Background(), "never-inserted")
		if !errors.Is(err, dataset.ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("retains the N most recent", func(t *testing.T) {
		var (
			evictMu sync.Mutex
			evicted []string
		)
		store := newStore(t, Options{
			MaxDatasets: 5,
			NewID:       sequentialIDs(),
			Now:         newTestClock().Now,
			OnEvict: func(ids []string) {
				evictMu.Lock()
				evicted = append(evicted, ids...)
				evictMu.Unlock()
			},
		})
		ctx := context.Background()

		var ids []string
		for i := 0; i < 8; i++ {
			ds, err := store.Save(ctx, fmt.Sprintf("file-%d.csv", i), testSummary(i+1))
			if err != nil {
				t.Fatalf("Save(%d) error = %v", i, err)
			}
			ids = append(ids, ds.ID)

			if _, err := store.Get(ctx, ds.ID); err != nil {
				t.Fatalf("just-saved dataset %s missing: %v", ds.ID, err)
			}

			all, err := store.ListRecent(ctx, 0)
			if err != nil {
				t.Fatalf("ListRecent() error = %v", err)
			}
			if want := min(i+1, 5); len(all) != want {
				t.Fatalf("after %d saves size = %d, want %d", i+1, len(all), want)
			}
		}

		recent, err := store.ListRecent(ctx, 0)
		if err != nil {
			t.Fatalf("ListRecent() error = %v", err)
		}
		want := []string{ids[7], ids[6], ids[5], ids[4], ids[3]}
		for i, ds := range recent {
			if ds.ID != want[i] {
				t.Errorf("ListRecent()[%d] = %s, want %s", i, ds.ID, want[i])
			}
		}

		for _, id := range ids[:3] {
			if _, err := store.Get(ctx, id); !errors.Is(err, dataset.ErrNotFound) {
				t.Errorf("Get(evicted %s) error = %v, want ErrNotFound", id, err)
			}
		}

		evictMu.Lock()
		defer evictMu.Unlock()
		if fmt.Sprint(evicted) != fmt.Sprint(ids[:3]) {
			t.Errorf("evicted = %v, want %v", evicted, ids[:3])
		}
	})

	t.Run("sixth save evicts the oldest", func(t *testing.T) {
		store := newStore(t, Options{NewID: sequentialIDs(), Now: newTestClock().Now})
		ctx := context.Background()

		first, err := store.Save(ctx, "t1.csv", testSummary(1))
		if err != nil {
			t.Fatal(err)
		}
		for i := 2; i <= 5; i++ {
			if _, err := store.Save(ctx, fmt.Sprintf("t%d.csv", i), testSummary(i)); err != nil {
				t.Fatal(err)
			}
		}
		sixth, err := store.Save(ctx, "t6.csv", testSummary(6))
		if err != nil {
			t.Fatal(err)
		}

		recent, _ := store.ListRecent(ctx, 0)
		if len(recent) != 5 {
			t.Fatalf("size = %d, want 5", len(recent))
		}
		if recent[0].ID != sixth.ID {
			t.Errorf("newest = %s, want %s", recent[0].ID, sixth.ID)
		}
		if _, err := store.Get(ctx, first.ID); !errors.Is(err, dataset.ErrNotFound) {
			t.Errorf("t1 dataset should be evicted, got %v", err)
		}
	})

	t.Run("equal timestamps evict lower id", func(t *testing.T) {
		fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		ids := []string{"b", "c", "a"}
		next := 0
		store := newStore(t, Options{
			MaxDatasets: 2,
			Now:         func() time.Time { return fixed },
			NewID: func() string {
				id := ids[next]
				next++
				return id
			},
		})
		ctx := context.Background()

		for i := range ids {
			if _, err := store.Save(ctx, "same.csv", testSummary(i+1)); err != nil {
				t.Fatal(err)
			}
		}

		// "a" is the lowest ID but was just saved, so "b" is the victim.
		if _, err := store.Get(ctx, "b"); !errors.Is(err, dataset.ErrNotFound) {
			t.Errorf("Get(b) error = %v, want ErrNotFound", err)
		}
		for _, id := range []string{"a", "c"} {
			if _, err := store.Get(ctx, id); err != nil {
				t.Errorf("Get(%s) error = %v", id, err)
			}
		}

		recent, _ := store.ListRecent(ctx, 0)
		if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "a" {
			t.Errorf("ListRecent() order = %v", datasetIDs(recent))
		}
	})

	t.Run("list limit", func(t *testing.T) {
		store := newStore(t, Options{NewID: sequentialIDs(), Now: newTestClock().Now})
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			if _, err := store.Save(ctx, "f.csv", testSummary(1)); err != nil {
				t.Fatal(err)
			}
		}

		recent, err := store.ListRecent(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if got := datasetIDs(recent); fmt.Sprint(got) != "[ds-0004 ds-0003]" {
			t.Errorf("ListRecent(2) = %v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t, Options{})
		ctx := context.Background()

		ds, err := store.Save(ctx, "f.csv", testSummary(2))
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, ds.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Get(ctx, ds.ID); !errors.Is(err, dataset.ErrNotFound) {
			t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
		}
		if err := store.Delete(ctx, ds.ID); !errors.Is(err, dataset.ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
		recent, _ := store.ListRecent(ctx, 0)
		if len(recent) != 0 {
			t.Errorf("ListRecent() after delete = %v", datasetIDs(recent))
		}
	})

	t.Run("stored summary is isolated from caller", func(t *testing.T) {
		store := newStore(t, Options{})
		ctx := context.Background()

		summary := testSummary(2)
		ds, err := store.Save(ctx, "f.csv", summary)
		if err != nil {
			t.Fatal(err)
		}
		summary.TypeDistribution["Pump"] = 99
		ds.Summary.TypeDistribution["Pump"] = 77

		got, _ := store.Get(ctx, ds.ID)
		if got.Summary.TypeDistribution["Pump"] != 2 {
			t.Errorf("stored distribution mutated: %v", got.Summary.TypeDistribution)
		}
	})

	t.Run("concurrent saves never exceed the bound", func(t *testing.T) {
		const maxDatasets = 5
		store := newStore(t, Options{MaxDatasets: maxDatasets})
		ctx := context.Background()

		stop := make(chan struct{})
		var readerErr atomic.Value
		var readers sync.WaitGroup
		for r := 0; r < 4; r++ {
			readers.Add(1)
			go func() {
				defer readers.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					all, err := store.ListRecent(ctx, 0)
					if err != nil {
						readerErr.Store(err)
						return
					}
					if len(all) > maxDatasets {
						readerErr.Store(fmt.Errorf("observed %d datasets", len(all)))
						return
					}
				}
			}()
		}

		var writers sync.WaitGroup
		savedIDs := make(chan string, 64)
		for w := 0; w < 8; w++ {
			writers.Add(1)
			go func(w int) {
				defer writers.Done()
				for i := 0; i < 8; i++ {
					ds, err := store.Save(ctx, fmt.Sprintf("w%d-%d.csv", w, i), testSummary(1))
					if err != nil {
						t.Errorf("Save() error = %v", err)
						return
					}
					savedIDs <- ds.ID
				}
			}(w)
		}
		writers.Wait()
		close(stop)
		readers.Wait()
		close(savedIDs)

		if v := readerErr.Load(); v != nil {
			t.Fatalf("reader: %v", v)
		}

		all, err := store.ListRecent(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != maxDatasets {
			t.Errorf("final size = %d, want %d", len(all), maxDatasets)
		}
		if n := len(savedIDs); n != 64 {
			t.Errorf("saved %d datasets, want 64", n)
		}
	})

	t.Run("slow clock read keeps the newer dataset", func(t *testing.T) {
		t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		entered := make(chan struct{})
		release := make(chan struct{})
		var calls atomic.Int32
		now := func() time.Time {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
				return t0.Add(time.Second)
			}
			return t0.Add(2 * time.Second)
		}
		store := newStore(t, Options{MaxDatasets: 1, NewID: sequentialIDs(), Now: now})
		ctx := context.Background()

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save(ctx, "a", testSummary(1))
			errs <- err
		}()
		<-entered

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save(ctx, "b", testSummary(1))
			errs <- err
		}()
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}

		all, err := store.ListRecent(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 1 || all[0].Name != "b" {
			t.Fatalf("retained = %+v, want only %q", all, "b")
		}
		if !all[0].UploadedAt.Equal(t0.Add(2 * time.Second)) {
			t.Errorf("UploadedAt = %v, want %v", all[0].UploadedAt, t0.Add(2*time.Second))
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		store := newStore(t, Options{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := store.Save(ctx, "f.csv", testSummary(1)); err == nil {
			t.Error("Save() with canceled context should fail")
		}
	})
}

func datasetIDs(ds []dataset.Dataset) []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return ids
}
