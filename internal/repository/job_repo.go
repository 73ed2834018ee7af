package repository

import (
	"context"
	"errors"
	"time"

	"github.com/velorek/notiq/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Recipient *string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type JobRepository interface {
	Create(ctx context.Context, j *domain.NotificationJob) error
	GetByID(ctx context.Context, id int64) (*domain.NotificationJob, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.NotificationJob, error)
	Delete(ctx context.Context, id int64) error
	ScheduleRetry(ctx context.Context, id int64, attemptCount int, nextRunAt time.Time, lastError string) error
	MarkExhausted(ctx context.Context, id int64, attemptCount int, lastError string) error
	CountStruggling(ctx context.Context, minAttempts int) (int64, error)
	List(ctx context.Context, params ListParams) ([]domain.NotificationJob, int64, error)
}

type GormJobRepo struct {
	db *gorm.DB
}

func NewGormJobRepo(db *gorm.DB) *GormJobRepo {
	return &GormJobRepo{db: db}
}

func (r *GormJobRepo) Create(ctx context.Context, j *domain.NotificationJob) error {
	model := jobModelFromDomain(j)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		*j = *jobModelToDomain(model)
	}
	return nil
}

func (r *GormJobRepo) GetByID(ctx context.Context, id int64) (*domain.NotificationJob, error) {
	var model JobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobModelToDomain(&model), nil
}

// GetDue returns jobs eligible for delivery, oldest first. Jobs that have
// exhausted their attempt budget are terminal and never selected.
func (r *GormJobRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.NotificationJob, error) {
	var models []JobModel
	err := r.db.WithContext(ctx).
		Where("next_run_at <= ? AND attempt_count < max_attempts", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.NotificationJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}

	return jobs, nil
}

func (r *GormJobRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&JobModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormJobRepo) ScheduleRetry(ctx context.Context, id int64, attemptCount int, nextRunAt time.Time, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": attemptCount,
			"next_run_at":   nextRunAt,
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkExhausted persists the final attempt count and error without deleting
// the row; the row stays behind as the terminal failure marker.
func (r *GormJobRepo) MarkExhausted(ctx context.Context, id int64, attemptCount int, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempt_count": attemptCount,
			"last_error":    lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormJobRepo) CountStruggling(ctx context.Context, minAttempts int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("attempt_count >= ?", minAttempts).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormJobRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&JobModel{})

	if params.Recipient != nil {
		query = query.Where("recipient = ?", *params.Recipient)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []JobModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	jobs := make([]domain.NotificationJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}

	return jobs, total, nil
}
