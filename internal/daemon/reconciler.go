// Package daemon holds background maintenance loops run by the overlay daemon.
package daemon

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReconcileInterval is used when no interval is configured.
const DefaultReconcileInterval = 10 * time.Second

// Pruner drops registry entries whose windows no longer exist and reports how
// many were dropped.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically purges registry entries for windows the window
// system has already destroyed.
type Reconciler struct {
	interval time.Duration
	pruner   Pruner
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, pruner Pruner) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reconciler{
		interval: interval,
		pruner:   pruner,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) (pruned int) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
			pruned = 0
		}
	}()

	n, err := r.pruner.Prune(ctx)
	if err != nil {
		r.logger.Warn("reconciler: failed to prune registry", "error", err)
		return 0
	}
	if n > 0 {
		r.logger.Info("reconciler: stale instances removed", "count", n)
	}
	return n
}

// ReconcileNow runs one pass immediately and returns how many entries were
// removed.
func (r *Reconciler) ReconcileNow(ctx context.Context) int {
	return r.reconcile(ctx)
}
