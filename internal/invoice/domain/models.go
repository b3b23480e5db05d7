// Package domain contains persistence models for flight invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// transitions encodes the status DAG. PAID and CANCELLED are terminal.
var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusPending, InvoiceStatusCancelled},
	InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to InvoiceStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Invoice is one billable FIR crossing for one flight.
type Invoice struct {
	ID                     snowflake.ID      `gorm:"primaryKey"`
	InvoiceNumber          string            `gorm:"not null;uniqueIndex:ux_invoices_number"`
	FlightID               int64             `gorm:"not null;index"`
	OperatorID             *snowflake.ID     `gorm:"index:ix_invoices_operator_period,priority:1"`
	Status                 InvoiceStatus     `gorm:"type:text;not null;default:'DRAFT'"`
	FIRName                string            `gorm:"column:fir_name"`
	FIRCountry             string            `gorm:"column:fir_country"`
	EntryTime              *time.Time        `gorm:""`
	ExitTime               *time.Time        `gorm:""`
	FeeAmount              *float64          `gorm:""`
	OtherFees              *float64          `gorm:""`
	Currency               string            `gorm:""`
	FxRate                 *float64          `gorm:""`
	TotalUSDAmount         *float64          `gorm:"column:total_usd_amount"`
	CalculationDescription string            `gorm:"type:text"`
	ConsolidatedInvoiceID  *snowflake.ID     `gorm:"index:ix_invoices_consolidated"`
	IssuedAt               *time.Time        `gorm:"index:ix_invoices_operator_period,priority:2"`
	DueAt                  *time.Time        `gorm:""`
	Metadata               datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceErrorType classifies why an entry became an error record instead of
// an invoice.
type InvoiceErrorType string

const (
	ErrorTypeComputeError     InvoiceErrorType = "COMPUTE_ERROR"
	ErrorTypeDataQuality      InvoiceErrorType = "DATA_QUALITY"
	ErrorTypeOperatorNotFound InvoiceErrorType = "OPERATOR_ID_NOT_FOUND"
	ErrorTypeOperatorMismatch InvoiceErrorType = "OPERATOR_ID_MISMATCH"
)

// InvoiceErrorStatus tracks manual resolution of an error record.
type InvoiceErrorStatus string

const (
	ErrorStatusOpen      InvoiceErrorStatus = "OPEN"
	ErrorStatusResolved  InvoiceErrorStatus = "RESOLVED"
	ErrorStatusDiscarded InvoiceErrorStatus = "DISCARDED"
)

// InvoiceError records an entry that could not become an invoice. Fee and
// FIR fields already computed are preserved so a human can re-resolve the
// operator later without recomputation. Error records never transition back
// into invoices automatically.
type InvoiceError struct {
	ID             snowflake.ID       `gorm:"primaryKey"`
	InvoiceNumber  string             `gorm:"not null"`
	FlightID       int64              `gorm:"not null;index"`
	ErrorType      InvoiceErrorType   `gorm:"type:text;not null"`
	ErrorMessage   string             `gorm:"type:text"`
	ErrorStatus    InvoiceErrorStatus `gorm:"type:text;not null;default:'OPEN'"`
	FIRName        string             `gorm:"column:fir_name"`
	FIRCountry     string             `gorm:"column:fir_country"`
	FeeAmount      *float64           `gorm:""`
	TotalUSDAmount *float64           `gorm:"column:total_usd_amount"`
	Metadata       datatypes.JSONMap  `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceError) TableName() string { return "invoice_errors" }
