package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/overflight/internal/audit/domain"
	computedomain "github.com/smallbiznis/overflight/internal/compute/domain"
	"github.com/smallbiznis/overflight/internal/invoice/domain"
	"github.com/smallbiznis/overflight/internal/operator/match"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Matchers *match.Chain
	AuditSvc auditdomain.Service
}

// Writer persists compute-engine output. Invoice numbers are minted fresh
// per call and the writer does not deduplicate by flight id: at-least-once
// redelivery can produce duplicate invoices for the same flight/FIR pair.
// The queue-delete-on-success contract in the ingestion pipeline bounds how
// often that happens.
type Writer struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	matchers *match.Chain
	auditSvc auditdomain.Service
}

func New(p Params) domain.Writer {
	return &Writer{
		db:       p.DB,
		log:      p.Log.Named("invoice.writer"),
		genID:    p.GenID,
		repo:     p.Repo,
		matchers: p.Matchers,
		auditSvc: p.AuditSvc,
	}
}

func (w *Writer) Persist(ctx context.Context, flightID int64, entries []computedomain.CrossingEntry, computeErrors []computedomain.ErrorEntry) (domain.PersistReport, error) {
	var report domain.PersistReport
	now := time.Now().UTC()

	for i := range entries {
		entry := &entries[i]
		created, wasError, err := w.persistEntry(ctx, flightID, entry, now)
		if err != nil {
			return report, fmt.Errorf("persist entry %s/%s: %w", entry.FIRName, entry.Country, err)
		}
		if wasError {
			report.ErrorInvoicesCreated++
		} else {
			report.InvoicesCreated++
		}
		w.auditSvc.RecordProcessed(ctx, flightID, created, map[string]any{
			"fir_name": entry.FIRName,
			"country":  entry.Country,
		})
	}

	for i := range computeErrors {
		if err := w.persistComputeError(ctx, flightID, &computeErrors[i], now); err != nil {
			return report, fmt.Errorf("persist compute error: %w", err)
		}
		report.ErrorInvoicesCreated++
	}

	return report, nil
}

// persistEntry resolves the operator and writes either an Invoice or a typed
// InvoiceError. Returns the minted invoice number and whether an error
// record was written instead of an invoice.
func (w *Writer) persistEntry(ctx context.Context, flightID int64, entry *computedomain.CrossingEntry, now time.Time) (string, bool, error) {
	candidate := match.Candidate{
		IBAOperatorID:    entry.IBAOperatorID,
		JetNetOperatorID: entry.JetNetOperatorID,
		OperatorName:     entry.OperatorName,
	}

	op, err := w.matchers.Resolve(ctx, candidate)
	if err != nil {
		return "", false, err
	}

	number := w.mintInvoiceNumber(now)

	if op == nil {
		errorType := domain.ErrorTypeOperatorNotFound
		if candidate.HasExternalIDs() {
			errorType = domain.ErrorTypeOperatorMismatch
		}
		invErr := &domain.InvoiceError{
			ID:             w.genID.Generate(),
			InvoiceNumber:  number,
			FlightID:       flightID,
			ErrorType:      errorType,
			ErrorMessage:   fmt.Sprintf("operator %q could not be resolved", entry.OperatorName),
			ErrorStatus:    domain.ErrorStatusOpen,
			FIRName:        entry.FIRName,
			FIRCountry:     entry.Country,
			FeeAmount:      float64Ptr(entry.Fees.Fee),
			TotalUSDAmount: float64Ptr(entry.Fees.TotalAmountUSD),
			Metadata:       entryMetadata(entry),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := w.repo.InsertInvoiceError(ctx, w.db, invErr); err != nil {
			return "", false, err
		}
		w.log.Info("operator unresolved, error record written",
			zap.Int64("flight_id", flightID),
			zap.String("fir", entry.FIRName),
			zap.String("error_type", string(errorType)),
		)
		return number, true, nil
	}

	opID := op.ID
	inv := &domain.Invoice{
		ID:                     w.genID.Generate(),
		InvoiceNumber:          number,
		FlightID:               flightID,
		OperatorID:             &opID,
		Status:                 domain.InvoiceStatusPending,
		FIRName:                entry.FIRName,
		FIRCountry:             entry.Country,
		EntryTime:              timePtr(entry.EntryTime),
		ExitTime:               timePtr(entry.ExitTime),
		FeeAmount:              float64Ptr(entry.Fees.Fee),
		OtherFees:              float64Ptr(entry.Fees.OtherFees),
		Currency:               entry.Fees.Currency,
		FxRate:                 float64Ptr(entry.Fees.FxRate),
		TotalUSDAmount:         float64Ptr(entry.Fees.TotalAmountUSD),
		CalculationDescription: entry.Fees.CalculationDescription,
		IssuedAt:               &now,
		DueAt:                  dueDate(now, op.PaymentTermsDays),
		Metadata:               entryMetadata(entry),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := w.repo.InsertInvoice(ctx, w.db, inv); err != nil {
		return "", false, err
	}
	return number, false, nil
}

// persistComputeError writes a structured engine error directly, no operator
// resolution, unresolved fields default to null.
func (w *Writer) persistComputeError(ctx context.Context, flightID int64, entry *computedomain.ErrorEntry, now time.Time) error {
	invErr := &domain.InvoiceError{
		ID:            w.genID.Generate(),
		InvoiceNumber: w.mintInvoiceNumber(now),
		FlightID:      flightID,
		ErrorType:     classifyComputeError(entry.ErrorType),
		ErrorMessage:  entry.Message,
		ErrorStatus:   domain.ErrorStatusOpen,
		FIRName:       entry.FIRName,
		FIRCountry:    entry.Country,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return w.repo.InsertInvoiceError(ctx, w.db, invErr)
}

func (w *Writer) UpdateStatus(ctx context.Context, invoiceID snowflake.ID, to domain.InvoiceStatus) error {
	inv, err := w.repo.FindInvoiceByID(ctx, w.db, invoiceID)
	if err != nil {
		return err
	}
	if inv == nil {
		return domain.ErrInvoiceNotFound
	}
	if !domain.CanTransition(inv.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, to)
	}
	updated, err := w.repo.UpdateInvoiceStatus(ctx, w.db, invoiceID, inv.Status, to)
	if err != nil {
		return err
	}
	if !updated {
		// Lost the race against a concurrent transition.
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, inv.Status, to)
	}
	return nil
}

func (w *Writer) mintInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), w.genID.Generate())
}

func classifyComputeError(errorType string) domain.InvoiceErrorType {
	switch errorType {
	case "DATA_QUALITY", "data_quality":
		return domain.ErrorTypeDataQuality
	default:
		return domain.ErrorTypeComputeError
	}
}

func entryMetadata(entry *computedomain.CrossingEntry) datatypes.JSONMap {
	if len(entry.Extra) == 0 {
		return datatypes.JSONMap{}
	}
	return entry.Extra
}

func float64Ptr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func dueDate(issued time.Time, termsDays int) *time.Time {
	if termsDays <= 0 {
		termsDays = 30
	}
	due := issued.AddDate(0, 0, termsDays)
	return &due
}
