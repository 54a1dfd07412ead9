// File: internal/usecase/send_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sms-relay/internal/capability"
	"sms-relay/internal/domain"
	"sms-relay/internal/domain/model"
	"sms-relay/internal/domain/ports/repository"
	"sms-relay/internal/infra/logging"
	"sms-relay/internal/infra/metrics"
	red "sms-relay/internal/infra/redis"
)

// Compile-time check
var _ SendUseCase = (*sendUC)(nil)

type SendUseCase interface {
	Send(ctx context.Context, to, message string) (*model.SendResult, error)
	Capabilities(ctx context.Context) ([]capability.Capability, error)
	RecentSends(ctx context.Context, limit int) ([]*model.SendRecord, error)
}

// ClientSource hands out the provider's client handle. Invalidate drops
// it so the next Get builds a fresh session.
type ClientSource interface {
	Get(ctx context.Context) (any, error)
	Invalidate()
	Provider() string
}

// SendLog is the optional audit trail. With Retention > 0 every write also
// prunes records older than Retention, inside the same transaction.
type SendLog struct {
	Repo      repository.SendLogRepository
	TM        repository.TransactionManager
	Retention time.Duration
}

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type SendGuard interface {
	Acquire(ctx context.Context, destination, message string) (token string, ok bool, err error)
	Release(ctx context.Context, destination, message, token string) error
}

type sendUC struct {
	clients ClientSource
	engine  *capability.Engine
	audit   SendLog
	limiter RateLimiter                  // optional
	guard   SendGuard                    // optional
	logger  *zerolog.Logger
	devMode bool

	// the client handle is not reentrant
	mu sync.Mutex
}

// NewSendUseCase wires the send flow. audit.Repo, limiter and guard may be nil.
func NewSendUseCase(clients ClientSource, engine *capability.Engine, audit SendLog, limiter RateLimiter, guard SendGuard, logger *zerolog.Logger, devMode bool) *sendUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &sendUC{
		clients: clients,
		engine:  engine,
		audit:   audit,
		limiter: limiter,
		guard:   guard,
		logger:  logger,
		devMode: devMode,
	}
}

func (s *sendUC) Send(ctx context.Context, to, message string) (*model.SendResult, error) {
	provider := s.clients.Provider()
	ctx = logging.WithProvider(ctx, provider)
	log := logging.With(ctx, s.logger)
	defer logging.TraceDuration(log, "SendUC.Send")()

	dest, err := model.DestinationNormalizer(provider)(to)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateMessage(message); err != nil {
		return nil, err
	}
	rec, err := model.NewSendRecord(provider, dest, utf8.RuneCountInString(message))
	if err != nil {
		return nil, err
	}

	if err := s.admit(ctx, rec); err != nil {
		return nil, err
	}
	token := ""
	if s.guard != nil {
		var ok bool
		token, ok, err = s.guard.Acquire(ctx, dest, message)
		if err != nil {
			return nil, fmt.Errorf("dedup guard: %w", err)
		}
		if !ok {
			metrics.IncRejection("duplicate")
			s.reject(ctx, rec, domain.ErrDuplicateSend)
			return nil, domain.ErrDuplicateSend
		}
	}

	rep, err := s.deliver(ctx, dest, message)
	if errors.Is(err, domain.ErrSessionRejected) {
		s.clients.Invalidate()
		log.Warn().Err(err).Msg("provider rejected the session; client dropped")
	}
	if err != nil && s.guard != nil {
		if rerr := s.guard.Release(ctx, dest, message, token); rerr != nil {
			log.Warn().Err(rerr).Msg("dedup marker not released")
		}
	}

	outcome := "delivered"
	status := model.SendStatusDelivered
	switch {
	case errors.Is(err, capability.ErrNoCandidatesFound):
		outcome, status = "no_candidates", model.SendStatusFailed
		err = fmt.Errorf("%w: %w", domain.ErrNoCandidates, err)
	case errors.Is(err, domain.ErrConfiguration):
		outcome, status = "failed", model.SendStatusFailed
	case err != nil:
		outcome, status = "failed", model.SendStatusFailed
		err = fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	var used string
	var tried, visited int
	if rep != nil {
		used, tried, visited = rep.Used, rep.Tried, rep.Visited
	}
	rec.Finish(status, used, tried, err)
	metrics.ObserveSend(provider, outcome, rec.Duration, tried, visited)
	s.save(ctx, rec)

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("id", rec.ID).
		Str("to", logging.Redact(dest, s.devMode)).
		Str("used", used).
		Int("tried", tried).
		Int("visited", visited).
		Dur("took", rec.Duration).
		Msg("send finished")

	if err != nil {
		return nil, err
	}
	return &model.SendResult{
		ID:         rec.ID,
		To:         dest,
		MessageLen: rec.MessageLen,
		Used:       used,
		Tried:      tried,
	}, nil
}

// admit applies the per-destination rate limit.
func (s *sendUC) admit(ctx context.Context, rec *model.SendRecord) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, red.DestinationKey(rec.Destination))
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !ok {
		metrics.IncRejection("rate_limited")
		s.reject(ctx, rec, domain.ErrRateLimited)
		return domain.ErrRateLimited
	}
	return nil
}

func (s *sendUC) deliver(ctx context.Context, dest, message string) (*capability.Report, error) {
	ctx, span := otel.Tracer("sms-relay/usecase").Start(ctx, "SendUC.deliver")
	defer span.End()

	client, err := s.clients.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "client unavailable")
		return nil, err
	}

	s.mu.Lock()
	rep, err := s.engine.Send(ctx, client, dest, message)
	s.mu.Unlock()

	span.SetAttributes(
		attribute.String("capability.used", rep.Used),
		attribute.Int("capability.tried", rep.Tried),
		attribute.Int("capability.candidates", rep.Candidates),
		attribute.Int("capability.visited", rep.Visited),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
	}
	return rep, err
}

func (s *sendUC) reject(ctx context.Context, rec *model.SendRecord, cause error) {
	rec.Finish(model.SendStatusRejected, "", 0, cause)
	s.save(ctx, rec)
}

func (s *sendUC) save(ctx context.Context, rec *model.SendRecord) {
	if s.audit.Repo == nil {
		return
	}
	var pruned int64
	err := s.withTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := s.audit.Repo.Save(ctx, tx, rec); err != nil {
			return err
		}
		if s.audit.Retention <= 0 {
			return nil
		}
		var err error
		pruned, err = s.audit.Repo.Prune(ctx, tx, rec.CreatedAt.Add(-s.audit.Retention))
		return err
	})
	metrics.IncSendLogWrite(err == nil)
	log := logging.With(ctx, s.logger)
	if err != nil {
		log.Error().Err(err).Str("id", rec.ID).Msg("send log write failed")
		return
	}
	if pruned > 0 {
		log.Debug().Int64("pruned", pruned).Msg("send log pruned")
	}
}

func (s *sendUC) withTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if s.audit.TM == nil {
		return fn(ctx, nil)
	}
	return s.audit.TM.WithTx(ctx, pgx.TxOptions{}, fn)
}

// Capabilities lists ranked sender candidates without invoking any of them.
func (s *sendUC) Capabilities(ctx context.Context) ([]capability.Capability, error) {
	client, err := s.clients.Get(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	s.mu.Lock()
	caps := s.engine.Inspect(client)
	s.mu.Unlock()
	s.logger.Debug().Int("candidates", len(caps)).Dur("took", time.Since(start)).Msg("capabilities inspected")
	return caps, nil
}

func (s *sendUC) RecentSends(ctx context.Context, limit int) ([]*model.SendRecord, error) {
	if s.audit.Repo == nil {
		return nil, fmt.Errorf("%w: send log is disabled", domain.ErrNotFound)
	}
	return s.audit.Repo.ListRecent(ctx, nil, limit)
}
