package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	computedomain "github.com/smallbiznis/overflight/internal/compute/domain"
	"gorm.io/gorm"
)

// PersistReport summarizes one writer call.
type PersistReport struct {
	InvoicesCreated      int
	ErrorInvoicesCreated int
}

// Writer turns compute-engine output into persisted invoices or typed error
// records.
type Writer interface {
	Persist(ctx context.Context, flightID int64, entries []computedomain.CrossingEntry, computeErrors []computedomain.ErrorEntry) (PersistReport, error)
	UpdateStatus(ctx context.Context, invoiceID snowflake.ID, to InvoiceStatus) error
}

// Repository takes the connection as an argument so callers can run several
// writes inside one transaction.
type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, inv *Invoice) error
	InsertInvoiceError(ctx context.Context, db *gorm.DB, invErr *InvoiceError) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to InvoiceStatus) (bool, error)
	ListUnconsolidated(ctx context.Context, db *gorm.DB, operatorID snowflake.ID, periodStart, periodEnd time.Time) ([]Invoice, error)
	ListByConsolidatedInvoice(ctx context.Context, db *gorm.DB, consolidatedID snowflake.ID) ([]Invoice, error)
	LinkToConsolidatedInvoice(ctx context.Context, db *gorm.DB, invoiceIDs []snowflake.ID, consolidatedID snowflake.ID) error
	MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

var (
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)
