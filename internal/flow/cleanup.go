package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/ParthPatel00/SantAI/internal/store"
)

// Default idle-session eviction policy.
const (
	DefaultCleanupInterval = 1 * time.Hour
	DefaultMaxIdle         = 24 * time.Hour
)

// Janitor evicts sessions that have been idle past a cutoff, so abandoned
// conversations do not accumulate in the store forever.
type Janitor struct {
	store    store.Store
	interval time.Duration
	maxIdle  time.Duration
}

// NewJanitor creates a session janitor.
func NewJanitor(st store.Store, interval, maxIdle time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Janitor{store: st, interval: interval, maxIdle: maxIdle}
}

// Start runs the eviction loop until the context is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	slog.Info("Janitor starting idle-session eviction", "interval", j.interval, "max_idle", j.maxIdle)

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.sweep()
			case <-ctx.Done():
				slog.Debug("Janitor stopping")
				return
			}
		}
	}()
}

// sweep evicts sessions idle past the cutoff.
func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.maxIdle)
	evicted, err := j.store.DeleteIdleFlowStates(cutoff)
	if err != nil {
		slog.Error("Janitor sweep failed", "error", err)
		return
	}
	if evicted > 0 {
		slog.Info("Janitor evicted idle sessions", "count", evicted, "cutoff", cutoff)
	}
}
