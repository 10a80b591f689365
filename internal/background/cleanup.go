package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/rmfernandez/acadguard/internal/services"
)

// IPRecordPurger removes expired IP failure records.
type IPRecordPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Cleaner periodically removes stale session rows and expired IP
// records. Lockout decisions never depend on this running, expiry is
// always evaluated against timestamps at read time. This only keeps
// the tables from growing without bound.
type Cleaner struct {
	sessions  *services.SessionService
	ips       IPRecordPurger
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
}

func NewCleaner(sessions *services.SessionService, ips IPRecordPurger, interval, retention time.Duration, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		sessions:  sessions,
		ips:       ips,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("cleanup worker started",
		slog.Duration("interval", c.interval),
		slog.Duration("session_retention", c.retention),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleaner) sweep(ctx context.Context) {
	sessions, err := c.sessions.PurgeStale(ctx, c.retention)
	if err != nil {
		c.logger.Error("failed to purge stale sessions", slog.Any("error", err))
	}

	records, err := c.ips.DeleteExpired(ctx, time.Now())
	if err != nil {
		c.logger.Error("failed to delete expired ip records", slog.Any("error", err))
	}

	if sessions > 0 || records > 0 {
		c.logger.Info("cleanup sweep finished",
			slog.Int64("sessions_removed", sessions),
			slog.Int64("ip_records_removed", records),
		)
	}
}
