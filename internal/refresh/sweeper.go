package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/lock"
	"github.com/seatrail/backend-cargo/internal/registry"
)

// StaleLister narrows the store surface the sweeper needs.
type StaleLister interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]registry.Shipment, error)
}

// TaskEnqueuer narrows the enqueue surface the sweeper needs.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, shipmentID uuid.UUID) error
}

// Sweeper periodically scans for stale active shipments and enqueues refresh
// tasks. A distributed lock keeps concurrent workers from double-sweeping.
type Sweeper struct {
	Store      StaleLister
	Enqueuer   TaskEnqueuer
	Locker     *lock.Locker
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	Logger     zerolog.Logger
}

// Run blocks until ctx is cancelled, sweeping on every interval tick.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	release, ok, err := s.Locker.Acquire(ctx, "refresh-sweep", s.lockTTL())
	if err != nil {
		s.Logger.Warn().Err(err).Msg("sweep lock unavailable")
		return
	}
	if !ok {
		s.Logger.Debug().Msg("sweep already running elsewhere")
		return
	}
	defer release(ctx)

	batch := s.BatchSize
	if batch <= 0 {
		batch = 50
	}
	staleAfter := s.StaleAfter
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}

	stale, err := s.Store.ListStale(ctx, time.Now().Add(-staleAfter), batch)
	if err != nil {
		s.Logger.Error().Err(err).Msg("stale shipment scan failed")
		return
	}
	enqueued := 0
	for _, sh := range stale {
		if err := s.Enqueuer.Enqueue(ctx, sh.ID); err == nil {
			enqueued++
		}
	}
	if enqueued > 0 {
		s.Logger.Info().Int("count", enqueued).Msg("stale shipments queued for refresh")
	}
}

func (s *Sweeper) lockTTL() time.Duration {
	interval := s.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return interval / 2
}
