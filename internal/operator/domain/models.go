// Package domain contains the billing subjects invoices are issued against.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OperatorStatus represents approval state for billing.
type OperatorStatus string

const (
	OperatorStatusApproved  OperatorStatus = "APPROVED"
	OperatorStatusPending   OperatorStatus = "PENDING"
	OperatorStatusSuspended OperatorStatus = "SUSPENDED"
)

// BillingPeriodType selects the recurring consolidation window.
type BillingPeriodType string

const (
	BillingPeriodWeekly  BillingPeriodType = "WEEKLY"
	BillingPeriodMonthly BillingPeriodType = "MONTHLY"
)

// Operator is an aircraft operator billed for FIR crossings.
type Operator struct {
	ID                    snowflake.ID      `gorm:"primaryKey"`
	Name                  string            `gorm:"not null"`
	TradingName           string            `gorm:""`
	IBAOperatorID         string            `gorm:"column:iba_operator_id;index"`
	JetNetOperatorID      string            `gorm:"column:jetnet_operator_id;index"`
	Email                 string            `gorm:""`
	Status                OperatorStatus    `gorm:"type:text;not null;default:'PENDING'"`
	BillingPeriodEnabled  bool              `gorm:"not null;default:false"`
	BillingPeriodType     BillingPeriodType `gorm:"type:text"`
	BillingPeriodStartDay int               `gorm:"not null;default:1"`
	PaymentTermsDays      int               `gorm:"not null;default:30"`
	Metadata              datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Operator) TableName() string { return "operators" }

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Operator, error)
	FindByIBAID(ctx context.Context, ibaID string) (*Operator, error)
	FindByJetNetID(ctx context.Context, jetNetID string) (*Operator, error)
	FindByName(ctx context.Context, name string) (*Operator, error)
	ListBillingEnabled(ctx context.Context) ([]Operator, error)
	Insert(ctx context.Context, op *Operator) error
}

var (
	ErrOperatorNotFound = errors.New("operator_not_found")
)
