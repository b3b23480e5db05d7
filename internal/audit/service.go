package audit

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("audit"),
		genID: p.GenID,
	}
}

// RecordProcessed appends one audit event. Audit failures are logged, never
// propagated; the invoice write must not roll back because the trail lagged.
func (s *service) RecordProcessed(ctx context.Context, flightID int64, invoiceNumber string, metadata map[string]any) {
	event := domain.FlightAuditEvent{
		ID:            s.genID.Generate(),
		FlightID:      flightID,
		InvoiceNumber: invoiceNumber,
		Action:        domain.ActionFlightProcessed,
		Metadata:      datatypes.JSONMap(metadata),
		CreatedAt:     time.Now().UTC(),
	}
	if event.Metadata == nil {
		event.Metadata = datatypes.JSONMap{}
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.log.Warn("audit event write failed",
			zap.Int64("flight_id", flightID),
			zap.String("invoice_number", invoiceNumber),
			zap.Error(err),
		)
	}
}

var Module = fx.Module("audit",
	fx.Provide(New),
)
