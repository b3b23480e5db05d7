// Package overdue flips pending invoices past their due date to OVERDUE.
package overdue

import (
	"context"

	"github.com/smallbiznis/overflight/internal/clock"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  invoicedomain.Repository
}

// Service is safe to rerun: the update is a single guarded statement, so
// invoices already marked are untouched.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  invoicedomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("overdue"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// MarkOverdue transitions every PENDING invoice whose due date has passed
// and returns how many rows changed.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	marked, err := s.repo.MarkOverdue(ctx, s.db, now)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.log.Info("invoices marked overdue", zap.Int64("count", marked))
	}
	return marked, nil
}

var Module = fx.Module("overdue",
	fx.Provide(New),
)
