// Package tracker runs the household's chore rotation: roster maintenance,
// chore bookkeeping and the completion workflow that hands a chore to the
// next person in line.
package tracker

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/choreboss/internal/authz"
	"github.com/dukerupert/choreboss/internal/credential"
	"github.com/dukerupert/choreboss/internal/metrics"
	"github.com/dukerupert/choreboss/internal/store"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Notifier is told about every committed change. The websocket hub is the
// production implementation.
type Notifier interface {
	Publish(entity, action string, id int64, extra map[string]any)
}

// Service is safe for concurrent use. Mutations are serialised so sequence
// positions stay dense even when deletes and reorders race.
type Service struct {
	mu sync.Mutex

	db     *sql.DB
	people *store.PersonStore
	chores *store.ChoreStore
	hasher credential.Hasher
	policy *authz.Policy
	clock  Clock

	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New wires a Service. A nil clock means the system clock.
func New(db *sql.DB, hasher credential.Hasher, policy *authz.Policy, clock Clock, opts ...Option) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Service{
		db:     db,
		people: store.NewPersonStore(db),
		chores: store.NewChoreStore(db),
		hasher: hasher,
		policy: policy,
		clock:  clock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize returns ErrUnauthorized unless the policy allows req. The
// mutations below call it themselves while holding s.mu, so a decision and
// the write it guards see the same roster. It reads through the pool and
// must not run inside WithTx.
func (s *Service) Authorize(ctx context.Context, req authz.Request) error {
	if !s.policy.Authorize(ctx, req) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) publish(entity, action string, id int64, extra map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(entity, action, id, extra)
}
