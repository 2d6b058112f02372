// Package stats implements the periodic refresh of the relational
// daily-aggregate view and the in-memory rollup of trailing-window
// statistics it publishes to the query layer.
package stats

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chicoferreira/contratopublico-go/internal/models"
)

// RefreshInterval is the fixed cadence the aggregator refreshes on.
const RefreshInterval = 15 * time.Minute

// Store is the subset of the relational store the aggregator depends
// on, narrowed to an interface so tests can substitute a fake.
type Store interface {
	RefreshDailyAggregates(ctx context.Context) error
	WindowStats(ctx context.Context, today time.Time) (models.StatisticsRollup, error)
}

// Aggregator runs a background refresh loop and exposes the latest
// rollup to readers behind a read-write lock: readers never see a torn
// value, and a failed refresh iteration leaves the last good rollup in
// place.
type Aggregator struct {
	store     Store
	onRefresh func(models.StatisticsRollup)

	mu     sync.RWMutex
	rollup models.StatisticsRollup
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// OnRefresh registers a callback invoked after every successful
// refresh with the newly published rollup. Used to push the rollup
// out over the WebSocket feed without the aggregator depending on the
// API package.
func (a *Aggregator) OnRefresh(fn func(models.StatisticsRollup)) {
	a.onRefresh = fn
}

// Rollup returns the currently published statistics snapshot.
func (a *Aggregator) Rollup() models.StatisticsRollup {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rollup
}

// Run blocks, refreshing on RefreshInterval until ctx is cancelled. An
// initial refresh runs immediately so the rollup isn't empty while the
// first tick is still pending.
func (a *Aggregator) Run(ctx context.Context) {
	a.refresh(ctx)

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}

func (a *Aggregator) refresh(ctx context.Context) {
	if err := a.store.RefreshDailyAggregates(ctx); err != nil {
		log.Printf("stats: refresh daily aggregates failed: %v", err)
		return
	}

	rollup, err := a.store.WindowStats(ctx, time.Now())
	if err != nil {
		log.Printf("stats: compute window stats failed: %v", err)
		return
	}

	a.mu.Lock()
	a.rollup = rollup
	a.mu.Unlock()

	if a.onRefresh != nil {
		a.onRefresh(rollup)
	}
}
