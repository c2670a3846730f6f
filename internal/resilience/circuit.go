package resilience

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker is a failure-ratio circuit breaker. The benchmark service wraps
// its live listing-price queries with it so a sick database makes lookups
// fail fast to the static table instead of queueing.
//
// Closed counts outcomes and opens once the failure ratio crosses the
// threshold over at least minRequests observations. Open rejects everything
// until openFor elapses, then lets a single probe through; the probe's
// outcome decides between Closed and Open again.
type Breaker struct {
	mu       sync.Mutex
	state    State
	fail     int
	ok       int
	openedAt time.Time

	minRequests  int
	failureRatio float64
	openFor      time.Duration

	target string
	logger zerolog.Logger
}

// NewBreaker builds a closed breaker. Out-of-range arguments are clamped to
// usable defaults rather than rejected; a miswired breaker should still
// protect something.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests < 1 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		logger:       zerolog.Nop(),
	}
}

// WithTarget names the guarded dependency for metric labels and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.publishState()
	return b
}

// WithLogger sets the logger for state transitions.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// Allow reports whether the caller may attempt the guarded operation. When
// the cool-off has elapsed the breaker moves to half-open and admits the
// caller as the probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return true
	}
	if time.Since(b.openedAt) < b.openFor {
		return false
	}
	b.transition(ctx, HalfOpen)
	return true
}

// Report feeds the outcome of an attempt back into the state machine.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.transition(ctx, Closed)
		} else {
			b.transition(ctx, Open)
		}
		return
	}

	if success {
		b.ok++
	} else {
		b.fail++
	}
	total := b.ok + b.fail
	if total < b.minRequests {
		return
	}
	if float64(b.fail)/float64(total) >= b.failureRatio {
		b.transition(ctx, Open)
		return
	}
	if total > b.minRequests*2 {
		// Halve the window so old outcomes age out.
		b.ok = (b.ok + 1) / 2
		b.fail = (b.fail + 1) / 2
	}
}

func (b *Breaker) transition(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.ok, b.fail = 0, 0
	if next == Open {
		b.openedAt = time.Now()
	} else {
		b.openedAt = time.Time{}
	}
	b.publishState()

	label := b.label()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	logger := b.logger
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		logger = *ctxLogger
	}
	logger.Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String()).
		Msg("breaker transition")
}

func (b *Breaker) publishState() {
	if BreakerState == nil {
		return
	}
	var v float64
	switch b.state {
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	}
	BreakerState.WithLabelValues(b.label()).Set(v)
}

func (b *Breaker) label() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

// Backoff returns the exponential delay for a retry attempt (1-based), with
// optional symmetric jitter expressed as a fraction of the delay.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * float64(d) * jitterPct
	return d + time.Duration(delta)
}
