// Package ledger keeps every account balance consistent with the incomes,
// expenses and transfers recorded against it, and derives historical
// balances, budgets and reports from that ledger.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"finance-ledger/internal/util"

	"gorm.io/gorm"
)

// DefaultOpeningBalanceCategory names the per-user income category that
// hosts opening-balance entries.
const DefaultOpeningBalanceCategory = "Opening Balance"

// Service is the single authority over Account.Balance. Every lifecycle
// operation runs in one database transaction together with its balance
// adjustment.
type Service struct {
	db              *gorm.DB
	log             *slog.Logger
	openingCategory string
	now             func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used for drift reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOpeningBalanceCategory overrides the opening-balance category name.
func WithOpeningBalanceCategory(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.openingCategory = name
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service over db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:              db,
		log:             slog.Default(),
		openingCategory: DefaultOpeningBalanceCategory,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for read-only collaborators.
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) today() time.Time { return util.DateOnly(s.now()) }

// atomic runs fn in one transaction. Any error rolls everything back.
func (s *Service) atomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return classify(s.db.WithContext(ctx).Transaction(fn))
}

// read runs fn on a context-bound session without a transaction.
func (s *Service) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	return classify(fn(s.db.WithContext(ctx)))
}
