package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/opportunities/internal/catalog"
	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
)

// Refresher is the part of catalog.Service the reloader drives.
type Refresher interface {
	Cached(ctx context.Context) (*domain.Snapshot, bool)
	Refresh(ctx context.Context, reason string) (*domain.Snapshot, error)
}

// SnapshotReloader rebuilds the snapshot on a ticker and on manual trigger.
type SnapshotReloader struct {
	refresher     Refresher
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger <-chan struct{}
}

// NewSnapshotReloader creates a reloader. manualTrigger may be nil.
func NewSnapshotReloader(
	refresher Refresher,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *SnapshotReloader {
	return &SnapshotReloader{
		refresher:     refresher,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start warms the in-process slot from the shared cache, builds a snapshot
// if none was found, then reloads periodically in the background. A failed
// initial build is logged, not returned: the service reports not-ready until
// a later reload succeeds.
func (sr *SnapshotReloader) Start(ctx context.Context) {
	if snap, ok := sr.refresher.Cached(ctx); ok {
		sr.logger.Info("warmed snapshot from cache",
			logger.String("snapshot_id", snap.ID),
			logger.Time("built_at", snap.BuiltAt))
	} else {
		sr.reload(ctx, catalog.ReasonStartup)
	}

	ticker := time.NewTicker(sr.interval)
	go func() {
		defer close(sr.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sr.reload(ctx, catalog.ReasonSchedule)
			case <-sr.manualTrigger:
				sr.logger.Info("manual reload triggered")
				sr.reload(ctx, catalog.ReasonManual)
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reloader and waits for an in-flight reload to finish.
func (sr *SnapshotReloader) Stop() {
	close(sr.stopCh)
	<-sr.done
}

func (sr *SnapshotReloader) reload(ctx context.Context, reason string) {
	if _, err := sr.refresher.Refresh(ctx, reason); err != nil {
		sr.logger.Error("failed to reload snapshot",
			logger.String("reason", reason),
			logger.Error(err))
	}
}
