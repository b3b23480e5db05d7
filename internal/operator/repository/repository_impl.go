package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/operator/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Operator, error) {
	var op domain.Operator
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&op).Error
	return oneOrNil(&op, err)
}

func (r *repo) FindByIBAID(ctx context.Context, ibaID string) (*domain.Operator, error) {
	if strings.TrimSpace(ibaID) == "" {
		return nil, nil
	}
	var op domain.Operator
	err := r.db.WithContext(ctx).
		Where("iba_operator_id = ?", ibaID).
		Take(&op).Error
	return oneOrNil(&op, err)
}

func (r *repo) FindByJetNetID(ctx context.Context, jetNetID string) (*domain.Operator, error) {
	if strings.TrimSpace(jetNetID) == "" {
		return nil, nil
	}
	var op domain.Operator
	err := r.db.WithContext(ctx).
		Where("jetnet_operator_id = ?", jetNetID).
		Take(&op).Error
	return oneOrNil(&op, err)
}

func (r *repo) FindByName(ctx context.Context, name string) (*domain.Operator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var op domain.Operator
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) OR LOWER(trading_name) = LOWER(?)", name, name).
		Take(&op).Error
	return oneOrNil(&op, err)
}

func (r *repo) ListBillingEnabled(ctx context.Context) ([]domain.Operator, error) {
	var ops []domain.Operator
	err := r.db.WithContext(ctx).
		Where("billing_period_enabled = ?", true).
		Order("id asc").
		Find(&ops).Error
	if err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *repo) Insert(ctx context.Context, op *domain.Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func oneOrNil(op *domain.Operator, err error) (*domain.Operator, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return op, nil
}
