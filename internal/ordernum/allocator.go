package ordernum

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Store exposes the order lookups the allocator needs. Reads must observe
// the caller's own recent writes (read-your-write consistency); eventual
// consistency here would defeat the collision check.
type Store interface {
	// LatestOrderNumber returns the highest sequential-format
	// (PREFIX-YYYYMMDD-NNNN) order number in [dayStart, dayEnd), or
	// ErrNoOrders when the day has none yet. Fallback-format numbers must
	// be excluded so the sequence resumes after a degraded allocation.
	LatestOrderNumber(ctx context.Context, dayStart, dayEnd time.Time) (string, error)
	// OrderNumberInUse reports whether the proposed number already exists.
	OrderNumberInUse(ctx context.Context, number string) (bool, error)
}

// Locker is an optional serialization fast path around allocation.
// Correctness does not depend on it: the store's read-then-check plus the
// retry loop is the real concurrency control.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// ErrNoOrders is returned by stores when a day has no allocations yet.
var ErrNoOrders = errors.New("ordernum: no orders for day")

const (
	defaultPrefix     = "FTM"
	defaultMaxRetries = 5
	dayFormat         = "20060102"
	lockKey           = "ordernum:allocate"
)

var sequentialPattern = regexp.MustCompile(`^[A-Z]+-\d{8}-(\d{4})$`)

// Allocator issues human-readable, date-scoped, monotonically increasing
// order numbers of the form PREFIX-YYYYMMDD-NNNN. Under sustained
// contention or store failure it degrades to a timestamp-suffixed number
// (PREFIX-YYYYMMDD-T<nanos>): still unique, no longer sequential. It never
// returns a number already in use and never fails an order for contention.
type Allocator struct {
	Store      Store
	Lock       Locker
	Prefix     string
	MaxRetries int
	LockTTL    time.Duration
	Now        func() time.Time
	Logger     zerolog.Logger
}

func (a *Allocator) prefix() string {
	if a.Prefix == "" {
		return defaultPrefix
	}
	return strings.ToUpper(a.Prefix)
}

func (a *Allocator) maxRetries() int {
	if a.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return a.MaxRetries
}

func (a *Allocator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Allocate returns the next order number for the current local day.
// Callers must treat this as a variable-latency operation: it may take
// multiple store round trips under contention.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	if a == nil || a.Store == nil {
		return "", errors.New("ordernum: store not configured")
	}

	var number string
	allocate := func(ctx context.Context) error {
		var err error
		number, err = a.allocateSequential(ctx)
		return err
	}

	if a.Lock != nil {
		ttl := a.LockTTL
		if ttl <= 0 {
			ttl = 5 * time.Second
		}
		if err := a.Lock.WithLock(ctx, lockKey, ttl, allocate); err == nil {
			return number, nil
		}
		// Lock acquisition or callback failure: fall through lock-free.
		// Checkout availability beats strict sequentiality.
	}
	if err := allocate(ctx); err != nil {
		return "", err
	}
	return number, nil
}

func (a *Allocator) allocateSequential(ctx context.Context) (string, error) {
	now := a.now()
	day := now.Format(dayFormat)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	for attempt := 1; attempt <= a.maxRetries(); attempt++ {
		latest, err := a.Store.LatestOrderNumber(ctx, dayStart, dayEnd)
		seq := 0
		switch {
		case err == nil:
			seq = parseSequence(latest)
		case errors.Is(err, ErrNoOrders):
			seq = 0
		default:
			// Store read failure: degrade to the fallback scheme rather
			// than abort order placement.
			a.Logger.Error().Err(err).Msg("order number lookup failed, using timestamp fallback")
			AllocationFallbacks.Inc()
			return a.fallback(now), nil
		}

		proposed := fmt.Sprintf("%s-%s-%04d", a.prefix(), day, seq+1)
		inUse, err := a.Store.OrderNumberInUse(ctx, proposed)
		if err != nil {
			a.Logger.Error().Err(err).Str("proposed", proposed).Msg("order number collision check failed, using timestamp fallback")
			AllocationFallbacks.Inc()
			return a.fallback(now), nil
		}
		if !inUse {
			return proposed, nil
		}
		// Lost a race with a concurrent allocator; re-read and retry.
		AllocationRetries.Inc()
		a.Logger.Debug().Str("proposed", proposed).Int("attempt", attempt).Msg("order number taken, retrying")
	}

	a.Logger.Warn().Int("attempts", a.maxRetries()).Msg("order number retries exhausted, using timestamp fallback")
	AllocationFallbacks.Inc()
	return a.fallback(now), nil
}

func (a *Allocator) fallback(now time.Time) string {
	return fmt.Sprintf("%s-%s-T%d", a.prefix(), now.Format(dayFormat), now.UnixNano())
}

// IsFallback reports whether a number came from the timestamp-suffix
// scheme rather than the sequential one.
func IsFallback(number string) bool {
	idx := strings.LastIndex(number, "-")
	return idx >= 0 && strings.HasPrefix(number[idx+1:], "T")
}

// parseSequence extracts the trailing 4-digit increment. Fallback-format
// numbers (and anything malformed) contribute zero; the collision check
// still protects against reuse.
func parseSequence(number string) int {
	m := sequentialPattern.FindStringSubmatch(strings.TrimSpace(number))
	if m == nil {
		return 0
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return seq
}
