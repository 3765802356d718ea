package auth

import (
	"context"
	"log/slog"
	"time"

	"salon-ledger/internal/storage"
)

// Watcher sweeps expired session rows on a coarse interval. This is
// advisory housekeeping; the authoritative expiry check is the one inside
// SessionManager.Current.
type Watcher struct {
	db       *storage.DB
	interval time.Duration
	log      *slog.Logger
}

// NewWatcher creates a watcher sweeping once per interval.
func NewWatcher(db *storage.DB, interval time.Duration, log *slog.Logger) *Watcher {
	return &Watcher{db: db, interval: interval, log: log}
}

// Run blocks, sweeping until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.db.CleanExpiredSessions(time.Now()); err != nil {
				w.log.Warn("session sweep failed", "error", err)
			}
		}
	}
}
