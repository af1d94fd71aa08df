package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ReconcilerConfig holds configuration for the periodic resync.
type ReconcilerConfig struct {
	// Interval between full resyncs (default: 5m)
	Interval time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Interval: 5 * time.Minute}
}

type mirrorer interface {
	Mirror(ctx context.Context) (bool, error)
	Invalidate()
}

// Reconciler periodically resyncs the mirror so that changes whose message
// was lost (broker down, publish failure) still reach the sheet.
type Reconciler struct {
	worker mirrorer
	config ReconcilerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(worker mirrorer, config ReconcilerConfig) *Reconciler {
	if config.Interval <= 0 {
		config.Interval = DefaultReconcilerConfig().Interval
	}
	return &Reconciler{worker: worker, config: config}
}

// Start begins the resync loop. Returns an error if already running.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror reconciler started", "interval", r.config.Interval)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror reconciler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// Sync immediately on startup
	r.reconcile(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile rewrites the sheet even when the table is unchanged, so edits
// made directly in the sheet are overwritten.
func (r *Reconciler) reconcile(ctx context.Context) {
	r.worker.Invalidate()
	wrote, err := r.worker.Mirror(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Mirror resync failed", "error", err)
		return
	}
	if wrote {
		slog.InfoContext(ctx, "Mirror resynced")
	}
}
