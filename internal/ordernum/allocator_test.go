package ordernum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore mimics the database's behavior for allocation: reads see prior
// Commit calls, and Commit enforces uniqueness.
type memStore struct {
	mu     sync.Mutex
	latest string
	used   map[string]bool

	lookupErr error
	checkErr  error
}

func newMemStore() *memStore {
	return &memStore{used: map[string]bool{}}
}

func (m *memStore) LatestOrderNumber(_ context.Context, _, _ time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return "", m.lookupErr
	}
	if m.latest == "" {
		return "", ErrNoOrders
	}
	return m.latest, nil
}

func (m *memStore) OrderNumberInUse(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.used[number], nil
}

func (m *memStore) Commit(number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used[number] {
		return fmt.Errorf("duplicate order number %s", number)
	}
	m.used[number] = true
	// Only sequential-format numbers advance the latest pointer, matching
	// the store's format filter.
	if sequentialPattern.MatchString(number) && number > m.latest {
		m.latest = number
	}
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAllocateFirstOfDay(t *testing.T) {
	store := newMemStore()
	a := &Allocator{Store: store, Now: fixedClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))}

	got, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "FTM-20260901-0001" {
		t.Fatalf("expected FTM-20260901-0001, got %s", got)
	}
	if IsFallback(got) {
		t.Fatalf("sequential number misreported as fallback: %s", got)
	}
}

func TestAllocateIncrementsFromLatest(t *testing.T) {
	store := newMemStore()
	if err := store.Commit("FTM-20260901-0041"); err != nil {
		t.Fatal(err)
	}
	a := &Allocator{Store: store, Now: fixedClock(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))}

	got, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "FTM-20260901-0042" {
		t.Fatalf("expected FTM-20260901-0042, got %s", got)
	}
}

func TestAllocateCustomPrefix(t *testing.T) {
	a := &Allocator{Store: newMemStore(), Prefix: "mkt", Now: fixedClock(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))}
	got, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "MKT-20260901-0001" {
		t.Fatalf("prefix should be upper-cased, got %s", got)
	}
}

func TestAllocateFallsBackWhenRetriesExhausted(t *testing.T) {
	store := newMemStore()
	// The latest number never advances, so every proposal collides.
	store.latest = "FTM-20260901-0007"
	store.used["FTM-20260901-0008"] = true

	a := &Allocator{Store: store, MaxRetries: 3, Now: fixedClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))}
	got, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("allocation must not fail under contention: %v", err)
	}
	if !IsFallback(got) {
		t.Fatalf("expected a timestamp fallback number, got %s", got)
	}
	if !strings.HasPrefix(got, "FTM-20260901-T") {
		t.Fatalf("fallback should keep the prefix and date, got %s", got)
	}
}

func TestAllocateResumesSequenceAfterFallback(t *testing.T) {
	store := newMemStore()
	if err := store.Commit("FTM-20260901-0003"); err != nil {
		t.Fatal(err)
	}
	// A degraded allocation committed a timestamp number. It must not be
	// reported as the day's latest, or every later proposal would be the
	// already-taken -0001 and the whole day would stay on fallbacks.
	if err := store.Commit("FTM-20260901-T1756720000000000000"); err != nil {
		t.Fatal(err)
	}

	a := &Allocator{Store: store, Now: fixedClock(time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC))}
	for want := 4; want <= 6; want++ {
		got, err := a.Allocate(context.Background())
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		expected := fmt.Sprintf("FTM-20260901-%04d", want)
		if got != expected {
			t.Fatalf("expected %s after fallback order, got %s", expected, got)
		}
		if err := store.Commit(got); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAllocateFallsBackOnStoreError(t *testing.T) {
	store := newMemStore()
	store.lookupErr = errors.New("connection reset")

	a := &Allocator{Store: store, Now: fixedClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))}
	got, err := a.Allocate(context.Background())
	if err != nil {
		t.Fatalf("store failure must not fail the order: %v", err)
	}
	if !IsFallback(got) {
		t.Fatalf("expected fallback on store error, got %s", got)
	}
}

func TestAllocateConcurrentDistinct(t *testing.T) {
	store := newMemStore()
	const n = 20

	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := &Allocator{Store: store}
			number, err := a.Allocate(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			// Commit enforces uniqueness the way the orders table's unique
			// index does; a collision surfaces here as an error.
			for {
				if err := store.Commit(number); err == nil {
					results[i] = number
					return
				}
				number, err = a.Allocate(context.Background())
				if err != nil {
					errs[i] = err
					return
				}
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if results[i] == "" {
			t.Fatalf("goroutine %d produced no number", i)
		}
		if seen[results[i]] {
			t.Fatalf("duplicate order number %s", results[i])
		}
		seen[results[i]] = true
	}
}

func TestParseSequence(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"FTM-20260901-0042", 42},
		{"FTM-20260901-9999", 9999},
		{"FTM-20260901-T1756720000000000000", 0},
		{"garbage", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := parseSequence(c.in); got != c.want {
			t.Fatalf("parseSequence(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
