package board

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker drives the periodic decay/eviction pass, independent of event
// traffic. It is started explicitly by the process wiring, never as a
// constructor side effect, and stops cooperatively via context.
type Ticker struct {
	store    *Store
	interval time.Duration
	logger   *zap.Logger
	done     chan struct{}
}

func NewTicker(store *Store, interval time.Duration, logger *zap.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		store:    store,
		interval: interval,
		logger:   logger.Named("ticker"),
		done:     make(chan struct{}),
	}
}

// Run loops until ctx is cancelled. Each iteration takes one pass under
// the store lock, then sleeps only the remainder of the interval so the
// cadence does not drift with the critical section's duration. A
// cancelled context interrupts the sleep, never a pass in flight.
func (t *Ticker) Run(ctx context.Context) {
	t.logger.Info("decay ticker started", zap.Duration("interval", t.interval))
	defer close(t.done)

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	for {
		started := time.Now()
		t.store.Tick()

		sleep := t.interval - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(sleep)

		select {
		case <-ctx.Done():
			t.logger.Info("decay ticker stopping")
			return
		case <-timer.C:
		}
	}
}

// Done is closed once Run has fully exited; shutdown hooks wait on it.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}
