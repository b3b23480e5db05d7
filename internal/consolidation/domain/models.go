// Package domain contains the consolidated billing document models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ConsolidatedInvoiceStatus mirrors the downstream billing lifecycle.
type ConsolidatedInvoiceStatus string

const (
	ConsolidatedStatusPending   ConsolidatedInvoiceStatus = "PENDING"
	ConsolidatedStatusPaid      ConsolidatedInvoiceStatus = "PAID"
	ConsolidatedStatusCancelled ConsolidatedInvoiceStatus = "CANCELLED"
)

// ConsolidatedInvoice aggregates one operator's invoices over one billing
// period. Exactly one row may exist per (operator, period start, period
// end); the table is an append-only ledger, rows are never deleted.
type ConsolidatedInvoice struct {
	ID                 snowflake.ID              `gorm:"primaryKey"`
	InvoiceNumber      string                    `gorm:"not null;uniqueIndex:ux_consolidated_number"`
	OperatorID         snowflake.ID              `gorm:"not null;uniqueIndex:ux_consolidated_period,priority:1"`
	BillingPeriodStart time.Time                 `gorm:"not null;uniqueIndex:ux_consolidated_period,priority:2"`
	BillingPeriodEnd   time.Time                 `gorm:"not null;uniqueIndex:ux_consolidated_period,priority:3"`
	TotalFlights       int64                     `gorm:"not null;default:0"`
	FeeSubtotal        float64                   `gorm:"not null;default:0"`
	OtherFeesSubtotal  float64                   `gorm:"not null;default:0"`
	TotalUSD           float64                   `gorm:"column:total_usd;not null;default:0"`
	FIRCountries       datatypes.JSON            `gorm:"column:fir_countries;type:jsonb;not null;default:'[]'"`
	Status             ConsolidatedInvoiceStatus `gorm:"type:text;not null;default:'PENDING'"`
	DueAt              *time.Time                `gorm:""`
	CreatedAt          time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ConsolidatedInvoice) TableName() string { return "consolidated_invoices" }

// GenerateOutcome classifies a generation attempt. Everything except
// OutcomeGenerated and a hard error is a skip, not a failure.
type GenerateOutcome string

const (
	OutcomeGenerated           GenerateOutcome = "generated"
	OutcomeOperatorNotFound    GenerateOutcome = "operator_not_found"
	OutcomeBillingDisabled     GenerateOutcome = "billing_disabled"
	OutcomeNotApproved         GenerateOutcome = "operator_not_approved"
	OutcomeNoPeriodType        GenerateOutcome = "no_period_type"
	OutcomeAlreadyConsolidated GenerateOutcome = "already_consolidated"
	OutcomeNothingToDo         GenerateOutcome = "nothing_to_consolidate"
)

// GenerateRequest asks for one operator/period consolidation. Nil period
// bounds are derived from the operator's billing configuration and
// ReferenceDate.
type GenerateRequest struct {
	OperatorID    snowflake.ID
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	ReferenceDate time.Time
}

// GenerateResult reports one attempt.
type GenerateResult struct {
	Outcome             GenerateOutcome
	ConsolidatedInvoice *ConsolidatedInvoice
	Message             string
}

// RunMetrics aggregates a generate-for-all sweep.
type RunMetrics struct {
	OperatorsProcessed        int
	InvoicesGenerated         int
	TotalInvoicesConsolidated int
	Errors                    []string
	ExecutionTime             time.Duration
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	GenerateForAll(ctx context.Context, referenceDate time.Time) RunMetrics
	Recalculate(ctx context.Context, consolidatedID snowflake.ID) error
}

var (
	ErrNoLinkedInvoices = errors.New("no_linked_invoices")
)
