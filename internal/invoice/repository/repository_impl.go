package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Create(inv).Error
}

func (r *repo) InsertInvoiceError(ctx context.Context, db *gorm.DB, invErr *domain.InvoiceError) error {
	return db.WithContext(ctx).Create(invErr).Error
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// UpdateInvoiceStatus performs a guarded transition; the WHERE clause on the
// current status makes concurrent updaters race safely.
func (r *repo) UpdateInvoiceStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.InvoiceStatus) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListUnconsolidated(ctx context.Context, db *gorm.DB, operatorID snowflake.ID, periodStart, periodEnd time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("operator_id = ?", operatorID).
		Where("consolidated_invoice_id IS NULL").
		Where("issued_at >= ? AND issued_at <= ?", periodStart, periodEnd).
		Where("status NOT IN ?", []domain.InvoiceStatus{domain.InvoiceStatusCancelled}).
		Order("issued_at asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListByConsolidatedInvoice(ctx context.Context, db *gorm.DB, consolidatedID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("consolidated_invoice_id = ?", consolidatedID).
		Order("issued_at asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) LinkToConsolidatedInvoice(ctx context.Context, db *gorm.DB, invoiceIDs []snowflake.ID, consolidatedID snowflake.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id IN ?", invoiceIDs).
		Updates(map[string]interface{}{
			"consolidated_invoice_id": consolidatedID,
			"updated_at":              time.Now().UTC(),
		}).Error
}

// MarkOverdue is the only time-driven status transition.
func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND due_at IS NOT NULL AND due_at < ?", domain.InvoiceStatusPending, now).
		Updates(map[string]interface{}{
			"status":     domain.InvoiceStatusOverdue,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
