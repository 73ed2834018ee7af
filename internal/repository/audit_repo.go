package repository

import (
	"context"
	"errors"

	"github.com/velorek/notiq/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, r *domain.AuditRecord) error
	Last(ctx context.Context) (*domain.AuditRecord, error)
	ListOrdered(ctx context.Context) ([]domain.AuditRecord, error)
}

type GormAuditRepo struct {
	db *gorm.DB
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db}
}

func (r *GormAuditRepo) Create(ctx context.Context, record *domain.AuditRecord) error {
	model := auditModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if record != nil {
		*record = *auditModelToDomain(model)
	}
	return nil
}

// Last returns the most recently inserted record, or ErrNotFound when the
// ledger is empty.
func (r *GormAuditRepo) Last(ctx context.Context) (*domain.AuditRecord, error) {
	var model AuditModel
	err := r.db.WithContext(ctx).Order("id DESC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return auditModelToDomain(&model), nil
}

func (r *GormAuditRepo) ListOrdered(ctx context.Context) ([]domain.AuditRecord, error) {
	var models []AuditModel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.AuditRecord, 0, len(models))
	for i := range models {
		records = append(records, *auditModelToDomain(&models[i]))
	}

	return records, nil
}
