// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v4"

	"sms-relay/internal/domain"
	"sms-relay/internal/domain/model"
	"sms-relay/internal/domain/ports/repository"
)

// ---- Client handles explored by the engine ----

type smsHandle struct {
	mu       sync.Mutex
	sent     []string
	err      error
	inFlight int32
	overlap  atomic.Bool
}

func (h *smsHandle) SendSMS(ctx context.Context, to, message string) error {
	if atomic.AddInt32(&h.inFlight, 1) > 1 {
		h.overlap.Store(true)
	}
	defer atomic.AddInt32(&h.inFlight, -1)
	time.Sleep(time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.sent = append(h.sent, to+"|"+message)
	return nil
}

type mutedHandle struct{ Version string }

// ---- Fakes ----

type fakeClients struct {
	handle        any
	err           error
	gets          int
	invalidations int
	name          string
}

func (f *fakeClients) Get(ctx context.Context) (any, error) {
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *fakeClients) Invalidate() { f.invalidations++ }

func (f *fakeClients) Provider() string {
	if f.name == "" {
		return "textnow"
	}
	return f.name
}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, nil
}

type fakeGuard struct {
	mu       sync.Mutex
	held     map[string]string
	released int
	err      error
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: map[string]string{}} }

func (g *fakeGuard) Acquire(ctx context.Context, dest, msg string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", false, g.err
	}
	k := dest + "|" + msg
	if _, ok := g.held[k]; ok {
		return "", false, nil
	}
	g.held[k] = "tok-" + k
	return g.held[k], true, nil
}

func (g *fakeGuard) Release(ctx context.Context, dest, msg, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := dest + "|" + msg
	if g.held[k] == token {
		delete(g.held, k)
		g.released++
	}
	return nil
}

// memSendLog is a small in-memory implementation used by unit tests.
type memSendLog struct {
	mu       sync.Mutex
	records  []*model.SendRecord
	saveErr  error
	pruneErr error
	txs      []repository.Tx
	cutoffs  []time.Time
}

func (m *memSendLog) Save(ctx context.Context, tx repository.Tx, rec *model.SendRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *memSendLog) Prune(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, tx)
	m.cutoffs = append(m.cutoffs, before)
	kept := m.records[:0]
	for _, r := range m.records {
		if !r.CreatedAt.Before(before) {
			kept = append(kept, r)
		}
	}
	n := int64(len(m.records) - len(kept))
	m.records = kept
	return n, nil
}

func (m *memSendLog) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.SendRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.SendRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// ---- Mock TransactionManager ----

type txHandle struct{ id int }

// MockTxManager hands fn a fresh txHandle and records whether the
// transaction committed.
type MockTxManager struct {
	begun     int
	committed int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.begun++
	if err := fn(ctx, &txHandle{id: m.begun}); err != nil {
		return err
	}
	m.committed++
	return nil
}

var errConfig = errors.Join(domain.ErrConfiguration, errors.New("TEXTNOW_EMAIL (and TEXTNOW_PASSWORD) or TEXTNOW_SID_COOKIE must be set"))
