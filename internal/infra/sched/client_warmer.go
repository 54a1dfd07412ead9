package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ClientSource is the part of the client cache the warmer needs.
type ClientSource interface {
	Get(ctx context.Context) (any, error)
	Provider() string
}

// ClientWarmer builds the provider client at startup and again on every
// tick, so an expired session is replaced before a send needs it.
type ClientWarmer struct {
	interval time.Duration
	clients  ClientSource
	log      *zerolog.Logger
}

func NewClientWarmer(interval time.Duration, clients ClientSource, logger *zerolog.Logger) *ClientWarmer {
	compLog := logger.With().Str("component", "ClientWarmer").Str("provider", clients.Provider()).Logger()
	return &ClientWarmer{interval: interval, clients: clients, log: &compLog}
}

func (w *ClientWarmer) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting client warmer")
	w.warm(ctx)
	if w.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping client warmer")
			return ctx.Err()
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *ClientWarmer) warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := w.clients.Get(ctx); err != nil {
		// sends will surface the same error; keep running
		w.log.Warn().Err(err).Msg("client warm-up failed")
		return
	}
	w.log.Debug().Msg("client ready")
}
