// Package domain contains the append-only flight audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const ActionFlightProcessed = "flight.processed"

// FlightAuditEvent records one processing fact for downstream
// reconciliation. The table is append-only.
type FlightAuditEvent struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	FlightID      int64             `gorm:"not null;index"`
	InvoiceNumber string            `gorm:""`
	Action        string            `gorm:"not null"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FlightAuditEvent) TableName() string { return "flight_audit_events" }

type Service interface {
	RecordProcessed(ctx context.Context, flightID int64, invoiceNumber string, metadata map[string]any)
}
