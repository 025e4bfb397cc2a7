package usecase

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Refresher is the slice of the engine the scheduler needs.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler triggers refresh cycles on a fixed cadence and on external
// lifecycle signals. It relies on the engine's drop-if-busy guard, so
// overlapping triggers are safe.
type Scheduler struct {
	engine   Refresher
	interval time.Duration
	wake     chan struct{}
}

func NewScheduler(engine Refresher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Wake requests an immediate refresh, e.g. when the host app comes to
// the foreground. Coalesces if one is already pending.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.engine.Refresh(ctx)
		case <-s.wake:
			s.engine.Refresh(ctx)
		}
	}
}
