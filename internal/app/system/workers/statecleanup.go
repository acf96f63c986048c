// internal/app/system/workers/statecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/dukhiatma/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ExpiredSweeper deletes records whose expiry has passed.
// oauthstate.Store satisfies it.
type ExpiredSweeper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StateCleanup is a background worker that removes expired sign-in states.
// The TTL index does the same eventually; this keeps the collection tight
// between TTL monitor passes.
type StateCleanup struct {
	states   ExpiredSweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewStateCleanup creates a new cleanup worker that sweeps every interval.
func NewStateCleanup(states ExpiredSweeper, logger *zap.Logger, interval time.Duration) *StateCleanup {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StateCleanup{
		states:   states,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *StateCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("oauth state cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *StateCleanup) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("oauth state cleanup worker stopped")
	})
}

func (w *StateCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one cleanup pass and returns the number of records removed.
func (w *StateCleanup) Sweep() int64 {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Medium(), w.log, "oauth state cleanup")
	defer cancel()

	count, err := w.states.CleanupExpired(ctx)
	if err != nil {
		w.log.Error("failed to clean up expired oauth states", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("removed expired oauth states", zap.Int64("count", count))
	}
	return count
}
