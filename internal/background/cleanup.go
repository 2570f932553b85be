package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProductPurger hard-deletes products soft-deleted before the retention window
type ProductPurger interface {
	PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error)
}

// CatalogPurger periodically removes products that stayed soft-deleted for longer than the retention window
type CatalogPurger struct {
	purger    ProductPurger
	logger    *slog.Logger
	retention time.Duration
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCatalogPurger creates a new catalog purger
func NewCatalogPurger(purger ProductPurger, logger *slog.Logger, retention, interval time.Duration) *CatalogPurger {
	return &CatalogPurger{
		purger:    purger,
		logger:    logger,
		retention: retention,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Enabled reports whether purging is configured
func (cp *CatalogPurger) Enabled() bool {
	return cp.retention > 0 && cp.interval > 0
}

// Start begins the periodic purge task. It blocks until Stop is called or ctx is cancelled.
func (cp *CatalogPurger) Start(ctx context.Context) {
	if !cp.Enabled() {
		cp.logger.Info("catalog purge disabled")
		return
	}

	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cp.runPurge(ctx)

	for {
		select {
		case <-ticker.C:
			cp.runPurge(ctx)
		case <-cp.stopCh:
			cp.logger.Info("catalog purger stopped")
			return
		case <-ctx.Done():
			cp.logger.Info("catalog purger context cancelled")
			return
		}
	}
}

func (cp *CatalogPurger) runPurge(ctx context.Context) {
	purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	purged, err := cp.purger.PurgeDeleted(purgeCtx, cp.retention)
	if err != nil {
		cp.logger.Error("failed to purge deleted products", slog.Any("error", err))
		return
	}

	if purged > 0 {
		cp.logger.Info("catalog purge completed",
			slog.Int64("products_purged", purged),
			slog.String("retention", cp.retention.String()),
		)
	}
}

// Stop signals the purger to stop
func (cp *CatalogPurger) Stop() {
	cp.stopOnce.Do(func() { close(cp.stopCh) })
}
