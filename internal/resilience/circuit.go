package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var breakerNopLogger = zerolog.Nop()

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen admits a bounded number of probes to test recovery.
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
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. The zero value is usable; out-of-range
// fields fall back to safe defaults.
type BreakerConfig struct {
	// MinRequests is the number of observed outcomes required before the
	// failure ratio is evaluated.
	MinRequests int
	// FailureRatio opens the breaker when failures/total reaches it.
	FailureRatio float64
	// OpenFor is the cool-off period before probing resumes.
	OpenFor time.Duration
	// Probes is how many half-open requests must all succeed to close.
	Probes int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MinRequests <= 0 {
		c.MinRequests = 1
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.FailureRatio > 1 {
		c.FailureRatio = 1
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 1
	}
	return c
}

// Breaker guards the vendor proxy with a failure-ratio circuit. Outcomes are
// tracked over a sliding window of the most recent requests, so a burst of
// failures opens the circuit even after a long healthy run.
type Breaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	state    State
	openedAt time.Time

	// recent is a ring of outcomes (true == failure) holding the last
	// 2*MinRequests observations.
	recent []bool
	next   int
	filled int

	probeBudget int
	probeOK     int

	target string
	logger *zerolog.Logger
}

// NewBreaker constructs a breaker from the given tuning.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), state: Closed}
}

// Allow reports whether a request may proceed. An open breaker starts
// admitting probes once the cool-off period has elapsed; while half-open, at
// most Probes requests pass until their outcomes are reported.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if time.Since(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.transitionLocked(ctx, HalfOpen)
	}
	if b.state == HalfOpen {
		if b.probeBudget <= 0 {
			return false
		}
		b.probeBudget--
		return true
	}
	return true
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if !success {
			b.transitionLocked(ctx, Open)
			return
		}
		b.probeOK++
		if b.probeOK >= b.cfg.Probes {
			b.transitionLocked(ctx, Closed)
		}
		return
	}

	b.observeLocked(!success)
	if b.filled < b.cfg.MinRequests {
		return
	}
	failures := 0
	for _, failed := range b.recent[:b.filled] {
		if failed {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.cfg.FailureRatio {
		b.transitionLocked(ctx, Open)
	}
}

func (b *Breaker) observeLocked(failed bool) {
	if b.recent == nil {
		b.recent = make([]bool, b.cfg.MinRequests*2)
	}
	b.recent[b.next] = failed
	b.next = (b.next + 1) % len(b.recent)
	if b.filled < len(b.recent) {
		b.filled++
	}
}

// Backoff returns an exponential backoff duration for the given attempt.
// Jitter is a fraction of the computed delay (0.2 == plus or minus 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 20 {
		shift = 20
	}
	d := base * time.Duration(1<<uint(shift))
	if jitterPct <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * jitterPct * float64(d)
	return d + time.Duration(delta)
}

// WithTarget sets the logical dependency identifier used for telemetry labels.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = strings.TrimSpace(target)
	b.setGaugeLocked()
	return b
}

// WithLogger configures the logger used for transition events.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = &logger
	return b
}

func (b *Breaker) transitionLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	b.recent = nil
	b.next = 0
	b.filled = 0
	b.probeOK = 0
	switch next {
	case Open:
		b.openedAt = time.Now()
	case HalfOpen:
		b.probeBudget = b.cfg.Probes
	case Closed:
		b.openedAt = time.Time{}
	}
	b.setGaugeLocked()

	label := b.targetLabel()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(label, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(label).Inc()
	}
	evt := b.loggerFor(ctx).Info().
		Str("target", label).
		Str("from_state", prev.String()).
		Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) setGaugeLocked() {
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
	BreakerState.WithLabelValues(b.targetLabel()).Set(v)
}

func (b *Breaker) targetLabel() string {
	if b.target == "" {
		return "default"
	}
	return b.target
}

func (b *Breaker) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger
	}
	if b.logger == nil {
		return &breakerNopLogger
	}
	return b.logger
}
