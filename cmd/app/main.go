// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sms-relay/internal/capability"
	"sms-relay/internal/config"
	"sms-relay/internal/infra/adapters"
	"sms-relay/internal/infra/api"
	pg "sms-relay/internal/infra/db/postgres"
	"sms-relay/internal/infra/logging"
	"sms-relay/internal/infra/metrics"
	red "sms-relay/internal/infra/redis"
	"sms-relay/internal/infra/sched"
	"sms-relay/internal/infra/session"
	"sms-relay/internal/infra/telemetry"
	"sms-relay/internal/usecase"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] destinations are logged unredacted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("sms-relay stopped")
	}
	logger.Info().Msg("sms-relay stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Metrics & tracing ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Provider.Kind)

	shutdownTracing, err := telemetry.Setup(cfg.Telemetry, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	// ---- Provider client ----
	provider, err := adapters.NewProvider(cfg, &http.Client{Timeout: cfg.HTTP.RequestTimeout})
	if err != nil {
		return err
	}
	clients := session.NewClientCache(provider, cfg.Provider.ClientTTL)

	engine := capability.NewEngine(capability.Options{
		RootName:          cfg.Discovery.RootName,
		MaxDepth:          cfg.Discovery.MaxDepth,
		MaxNodes:          cfg.Discovery.MaxNodes,
		ConversationDepth: cfg.Discovery.ConversationDepth,
		SkipAccessors:     cfg.Discovery.SkipAccessors,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	// ---- Redis (optional) ----
	var limiter usecase.RateLimiter
	var guard usecase.SendGuard
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rc.Close()
		if cfg.Redis.RateLimit > 0 {
			limiter = red.NewRateLimiter(rc, cfg.Redis.RateLimit, cfg.Redis.RateWindow)
		}
		if cfg.Redis.DedupTTL > 0 {
			guard = red.NewSendGuard(rc, cfg.Redis.DedupTTL)
		}
		logger.Info().Int("rate_limit", cfg.Redis.RateLimit).Dur("dedup_ttl", cfg.Redis.DedupTTL).Msg("redis connected")
	}

	// ---- Postgres send log (optional) ----
	var audit usecase.SendLog
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		audit = usecase.SendLog{
			Repo:      pg.NewSendLogRepo(pool),
			TM:        pg.NewTxManager(pool),
			Retention: cfg.Database.Retention,
		}
		poolStats := sched.NewPoolStatsWorker(15*time.Second, sched.PgxPoolStats(pool), logger)
		g.Go(func() error { return ignoreCancel(poolStats.Run(gctx)) })
		logger.Info().Dur("retention", cfg.Database.Retention).Msg("send log enabled")
	}

	sendUC := usecase.NewSendUseCase(clients, engine, audit, limiter, guard, logger, cfg.Runtime.Dev)

	warmer := sched.NewClientWarmer(cfg.Provider.ClientTTL, clients, logger)
	g.Go(func() error { return ignoreCancel(warmer.Run(gctx)) })

	// ---- HTTP ----
	var auth *api.AuthManager
	if cfg.Security.RequireAuth {
		auth = api.NewAuthManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewServer(sendUC, auth, cfg, logger).Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTP.Addr).Str("provider", provider.Name()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
