package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// FavoriteRecounter repairs favorite counters that drifted from the
// favorite membership set.
type FavoriteRecounter interface {
	RecountFavorites(ctx context.Context) (int64, error)
}

// ReconcileFavoritesTask recomputes favorites_count from the favorite set
// for every drifted book.
type ReconcileFavoritesTask struct{}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileFavoritesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_favorites",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileFavoritesProcessor creates a processor function for
// ReconcileFavoritesTask.
func ReconcileFavoritesProcessor(recounter FavoriteRecounter) backlite.QueueProcessor[ReconcileFavoritesTask] {
	return func(ctx context.Context, task ReconcileFavoritesTask) error {
		if recounter == nil {
			return fmt.Errorf("favorite recounter not configured")
		}

		repaired, err := recounter.RecountFavorites(ctx)
		if err != nil {
			return fmt.Errorf("reconcile favorites: %w", err)
		}

		log.Printf("[TASK] Reconciled favorite counters on %d books", repaired)
		return nil
	}
}

// NewReconcileFavoritesQueue creates a backlite queue for favorite
// reconciliation tasks.
func NewReconcileFavoritesQueue(recounter FavoriteRecounter) backlite.Queue {
	return backlite.NewQueue(ReconcileFavoritesProcessor(recounter))
}
