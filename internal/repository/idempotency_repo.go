package repository

import (
	"context"
	"errors"
	"time"

	"github.com/velorek/notiq/internal/domain"
	"gorm.io/gorm"
)

type IdempotencyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormIdempotencyRepo struct {
	db *gorm.DB
}

func NewGormIdempotencyRepo(db *gorm.DB) *GormIdempotencyRepo {
	return &GormIdempotencyRepo{db: db}
}

func (r *GormIdempotencyRepo) GetByKey(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	var model IdempotencyModel
	err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return idempotencyModelToDomain(&model), nil
}

// DeleteExpired removes records past expiry regardless of completion state.
func (r *GormIdempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&IdempotencyModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
