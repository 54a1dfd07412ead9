package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"sms-relay/internal/infra/metrics"
)

// PoolStats reports total, idle and acquired connection counts.
type PoolStats func() (total, idle, inUse int32)

// PgxPoolStats adapts a pgx pool to PoolStats.
func PgxPoolStats(pool *pgxpool.Pool) PoolStats {
	return func() (int32, int32, int32) {
		s := pool.Stat()
		return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
	}
}

// PoolStatsWorker periodically publishes database pool gauges.
type PoolStatsWorker struct {
	interval time.Duration
	stats    PoolStats
	log      *zerolog.Logger
}

func NewPoolStatsWorker(interval time.Duration, stats PoolStats, logger *zerolog.Logger) *PoolStatsWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	compLog := logger.With().Str("component", "PoolStatsWorker").Logger()
	return &PoolStatsWorker{interval: interval, stats: stats, log: &compLog}
}

func (w *PoolStatsWorker) Run(ctx context.Context) error {
	w.log.Debug().Msg("Starting pool stats worker")
	w.publish()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("Stopping pool stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.publish()
		}
	}
}

func (w *PoolStatsWorker) publish() {
	metrics.SetDBPoolStats(w.stats())
}
