package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultCleanupInterval = time.Hour

// ExpiredSessionCleaner periodically deletes expired and revoked rows from admin_sessions.
type ExpiredSessionCleaner struct {
	store    *DBStore
	interval time.Duration
}

// NewExpiredSessionCleaner returns a cleaner for store, or nil when store is nil.
func NewExpiredSessionCleaner(store *DBStore) *ExpiredSessionCleaner {
	if store == nil {
		return nil
	}
	return &ExpiredSessionCleaner{store: store, interval: defaultCleanupInterval}
}

// Start launches the cleanup loop in a background goroutine.
func (c *ExpiredSessionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("session cleaner started (interval=%s)", c.interval)
}

func (c *ExpiredSessionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (c *ExpiredSessionCleaner) cleanupOnce(ctx context.Context) int64 {
	if c == nil || c.store == nil {
		return 0
	}
	n, err := c.store.PurgeExpired(ctx, c.store.now())
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("session cleaner: purge failed")
		}
		return 0
	}
	if n > 0 {
		log.WithField("count", n).Info("session cleaner: purged expired sessions")
	}
	return n
}
