package consolidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/billingperiod"
	"github.com/smallbiznis/overflight/internal/clock"
	"github.com/smallbiznis/overflight/internal/config"
	"github.com/smallbiznis/overflight/internal/consolidation/domain"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	"github.com/smallbiznis/overflight/internal/observability/metrics"
	operatordomain "github.com/smallbiznis/overflight/internal/operator/domain"
	"github.com/smallbiznis/overflight/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	OperatorRepo operatordomain.Repository
	InvoiceRepo  invoicedomain.Repository
	Schedule     *config.ScheduleConfigHolder
}

// Service rolls one operator's unconsolidated invoices for a closed billing
// period into a single consolidated document.
type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	operatorRepo operatordomain.Repository
	invoiceRepo  invoicedomain.Repository
	schedule     *config.ScheduleConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("consolidation"),
		genID:        p.GenID,
		clock:        p.Clock,
		operatorRepo: p.OperatorRepo,
		invoiceRepo:  p.InvoiceRepo,
		schedule:     p.Schedule,
	}
}

// Generate walks the guard chain and writes at most one consolidated
// invoice. Every guard short-circuits with a skip outcome instead of an
// error; rerunning for an already-closed period is a no-op.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	op, err := s.operatorRepo.FindByID(ctx, req.OperatorID)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if op == nil {
		return skip(domain.OutcomeOperatorNotFound, "operator does not exist"), nil
	}
	if !op.BillingPeriodEnabled {
		return skip(domain.OutcomeBillingDisabled, "billing period disabled"), nil
	}
	if op.Status != operatordomain.OperatorStatusApproved {
		return skip(domain.OutcomeNotApproved, fmt.Sprintf("operator status is %s", op.Status)), nil
	}
	if op.BillingPeriodType == "" {
		return skip(domain.OutcomeNoPeriodType, "no billing period type configured"), nil
	}

	periodStart, periodEnd, err := s.resolvePeriod(*op, req)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	existing, err := s.findExisting(ctx, req.OperatorID, periodStart, periodEnd)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if existing != nil {
		return domain.GenerateResult{
			Outcome:             domain.OutcomeAlreadyConsolidated,
			ConsolidatedInvoice: existing,
			Message:             "period already consolidated",
		}, nil
	}

	invoices, err := s.invoiceRepo.ListUnconsolidated(ctx, s.db, req.OperatorID, periodStart, periodEnd)
	if err != nil {
		return domain.GenerateResult{}, err
	}
	if len(invoices) == 0 {
		return skip(domain.OutcomeNothingToDo, "no unconsolidated invoices in period"), nil
	}

	now := s.clock.Now()
	consolidated := s.buildConsolidated(*op, invoices, periodStart, periodEnd, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(consolidated).Error; err != nil {
			return err
		}
		ids := make([]snowflake.ID, 0, len(invoices))
		for _, inv := range invoices {
			ids = append(ids, inv.ID)
		}
		return s.invoiceRepo.LinkToConsolidatedInvoice(ctx, tx, ids, consolidated.ID)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Another instance closed the period between our existence check
			// and the insert. Surface their row as the idempotent result.
			existing, findErr := s.findExisting(ctx, req.OperatorID, periodStart, periodEnd)
			if findErr == nil && existing != nil {
				return domain.GenerateResult{
					Outcome:             domain.OutcomeAlreadyConsolidated,
					ConsolidatedInvoice: existing,
					Message:             "period already consolidated",
				}, nil
			}
		}
		return domain.GenerateResult{}, err
	}

	metrics.IngestionMetrics().AddConsolidated(len(invoices))
	s.log.Info("consolidated invoice generated",
		zap.String("invoice_number", consolidated.InvoiceNumber),
		zap.String("operator_id", consolidated.OperatorID.String()),
		zap.Int("invoices", len(invoices)),
		zap.Float64("total_usd", consolidated.TotalUSD),
	)

	return domain.GenerateResult{
		Outcome:             domain.OutcomeGenerated,
		ConsolidatedInvoice: consolidated,
	}, nil
}

// GenerateForAll closes the period for every billing-enabled operator whose
// window ends on referenceDate. One operator's failure is recorded and
// never aborts the remaining operators.
func (s *Service) GenerateForAll(ctx context.Context, referenceDate time.Time) domain.RunMetrics {
	started := time.Now()
	var m domain.RunMetrics

	operators, err := s.operatorRepo.ListBillingEnabled(ctx)
	if err != nil {
		m.Errors = append(m.Errors, fmt.Sprintf("list operators: %v", err))
		m.ExecutionTime = time.Since(started)
		return m
	}

	for _, op := range operators {
		if ctx.Err() != nil {
			m.Errors = append(m.Errors, fmt.Sprintf("aborted: %v", ctx.Err()))
			break
		}
		m.OperatorsProcessed++

		closing, err := billingperiod.IsPeriodEnd(op, referenceDate)
		if err != nil {
			m.Errors = append(m.Errors, fmt.Sprintf("operator %s: %v", op.ID, err))
			continue
		}
		if !closing {
			continue
		}

		result, err := s.Generate(ctx, domain.GenerateRequest{
			OperatorID:    op.ID,
			ReferenceDate: referenceDate,
		})
		if err != nil {
			m.Errors = append(m.Errors, fmt.Sprintf("operator %s: %v", op.ID, err))
			continue
		}
		if result.Outcome == domain.OutcomeGenerated {
			m.InvoicesGenerated++
			m.TotalInvoicesConsolidated += int(result.ConsolidatedInvoice.TotalFlights)
		}
	}

	m.ExecutionTime = time.Since(started)
	s.log.Info("consolidation sweep finished",
		zap.Int("operators_processed", m.OperatorsProcessed),
		zap.Int("invoices_generated", m.InvoicesGenerated),
		zap.Int("total_invoices_consolidated", m.TotalInvoicesConsolidated),
		zap.Int("errors", len(m.Errors)),
		zap.Duration("execution_time", m.ExecutionTime),
	)
	return m
}

// Recalculate overwrites the consolidated totals from the currently linked
// invoices. The consolidated row is a live aggregate snapshot, not a frozen
// copy: editing a constituent invoice and recalculating keeps them in sync.
func (s *Service) Recalculate(ctx context.Context, consolidatedID snowflake.ID) error {
	invoices, err := s.invoiceRepo.ListByConsolidatedInvoice(ctx, s.db, consolidatedID)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		return domain.ErrNoLinkedInvoices
	}

	totals := aggregate(invoices)
	return s.db.WithContext(ctx).
		Model(&domain.ConsolidatedInvoice{}).
		Where("id = ?", consolidatedID).
		Updates(map[string]interface{}{
			"total_flights":       totals.flights,
			"fee_subtotal":        totals.fees,
			"other_fees_subtotal": totals.otherFees,
			"total_usd":           totals.totalUSD,
			"fir_countries":       totals.countriesJSON(),
			"updated_at":          s.clock.Now(),
		}).Error
}

func (s *Service) resolvePeriod(op operatordomain.Operator, req domain.GenerateRequest) (time.Time, time.Time, error) {
	if req.PeriodStart != nil && req.PeriodEnd != nil {
		return *req.PeriodStart, *req.PeriodEnd, nil
	}
	ref := req.ReferenceDate
	if ref.IsZero() {
		ref = s.clock.Now()
	}
	period, err := billingperiod.CurrentPeriod(op, ref)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return period.Start, period.End, nil
}

func (s *Service) findExisting(ctx context.Context, operatorID snowflake.ID, periodStart, periodEnd time.Time) (*domain.ConsolidatedInvoice, error) {
	var existing domain.ConsolidatedInvoice
	err := s.db.WithContext(ctx).
		Where("operator_id = ? AND billing_period_start = ? AND billing_period_end = ?", operatorID, periodStart, periodEnd).
		Take(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}

func (s *Service) buildConsolidated(op operatordomain.Operator, invoices []invoicedomain.Invoice, periodStart, periodEnd, now time.Time) *domain.ConsolidatedInvoice {
	totals := aggregate(invoices)

	termsDays := op.PaymentTermsDays
	if termsDays <= 0 {
		termsDays = s.schedule.Get().PaymentTermsDays
	}
	due := periodEnd.AddDate(0, 0, termsDays)

	return &domain.ConsolidatedInvoice{
		ID:                 s.genID.Generate(),
		InvoiceNumber:      mintNumber(op.ID, periodStart, periodEnd),
		OperatorID:         op.ID,
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		TotalFlights:       totals.flights,
		FeeSubtotal:        totals.fees,
		OtherFeesSubtotal:  totals.otherFees,
		TotalUSD:           totals.totalUSD,
		FIRCountries:       totals.countriesJSON(),
		Status:             domain.ConsolidatedStatusPending,
		DueAt:              &due,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// mintNumber is period-scoped: the same operator and period always mint the
// same number, so the unique index on invoice_number backs up the period
// uniqueness constraint.
func mintNumber(operatorID snowflake.ID, periodStart, periodEnd time.Time) string {
	return fmt.Sprintf("CON-%s-%s-%s",
		operatorID,
		periodStart.Format("20060102"),
		periodEnd.Format("20060102"),
	)
}

type totals struct {
	flights   int64
	fees      float64
	otherFees float64
	totalUSD  float64
	countries map[string]struct{}
}

func aggregate(invoices []invoicedomain.Invoice) totals {
	t := totals{countries: make(map[string]struct{})}
	for _, inv := range invoices {
		t.flights++
		if inv.FeeAmount != nil {
			t.fees += *inv.FeeAmount
		}
		if inv.OtherFees != nil {
			t.otherFees += *inv.OtherFees
		}
		if inv.TotalUSDAmount != nil {
			t.totalUSD += *inv.TotalUSDAmount
		}
		if inv.FIRCountry != "" {
			t.countries[inv.FIRCountry] = struct{}{}
		}
	}
	return t
}

func (t totals) countriesJSON() datatypes.JSON {
	names := make([]string, 0, len(t.countries))
	for name := range t.countries {
		names = append(names, name)
	}
	sort.Strings(names)
	raw, _ := json.Marshal(names)
	return datatypes.JSON(raw)
}

func skip(outcome domain.GenerateOutcome, message string) domain.GenerateResult {
	return domain.GenerateResult{Outcome: outcome, Message: message}
}

var Module = fx.Module("consolidation",
	fx.Provide(New),
)
