package repository

import (
	"time"

	"github.com/velorek/notiq/internal/domain"
)

// JobModel is the persistence model for the notification_jobs table.
type JobModel struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	Recipient    string         `gorm:"type:varchar(255);not null"`
	Subject      string         `gorm:"type:varchar(998);not null"`
	Body         string         `gorm:"type:text;not null"`
	UserID       *int64         `gorm:"index"`
	Channel      domain.Channel `gorm:"type:varchar(20);not null"`
	AttemptCount int            `gorm:"not null;default:0"`
	MaxAttempts  int            `gorm:"not null;default:5"`
	NextRunAt    time.Time      `gorm:"not null"`
	LastError    *string        `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (JobModel) TableName() string {
	return "notification_jobs"
}

// AuditModel is the persistence model for the audit_records table.
type AuditModel struct {
	ID         int64              `gorm:"primaryKey;autoIncrement"`
	EventType  string             `gorm:"type:varchar(100);not null"`
	ActorEmail string             `gorm:"type:varchar(255);not null"`
	Recipients string             `gorm:"type:text;not null"`
	Delivery   domain.Channel     `gorm:"type:varchar(20);not null"`
	Provider   domain.ProviderTag `gorm:"type:varchar(20);not null"`
	Success    bool               `gorm:"not null"`
	Error      *string            `gorm:"type:text"`
	PrevHash   *string            `gorm:"type:char(64)"`
	Hash       string             `gorm:"type:char(64);not null"`
	CreatedAt  time.Time
}

func (AuditModel) TableName() string {
	return "audit_records"
}

// IdempotencyModel is the persistence model for the idempotency_keys table.
type IdempotencyModel struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	UserID    int64  `gorm:"not null;index"`
	Action    string `gorm:"type:varchar(100);not null"`
	EntityID  *int64
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (IdempotencyModel) TableName() string {
	return "idempotency_keys"
}

func jobModelFromDomain(j *domain.NotificationJob) *JobModel {
	if j == nil {
		return nil
	}

	return &JobModel{
		ID:           j.ID,
		Recipient:    j.Recipient,
		Subject:      j.Subject,
		Body:         j.Body,
		UserID:       j.UserID,
		Channel:      j.Channel,
		AttemptCount: j.AttemptCount,
		MaxAttempts:  j.MaxAttempts,
		NextRunAt:    j.NextRunAt,
		LastError:    j.LastError,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func jobModelToDomain(m *JobModel) *domain.NotificationJob {
	if m == nil {
		return nil
	}

	return &domain.NotificationJob{
		ID:           m.ID,
		Recipient:    m.Recipient,
		Subject:      m.Subject,
		Body:         m.Body,
		UserID:       m.UserID,
		Channel:      m.Channel,
		AttemptCount: m.AttemptCount,
		MaxAttempts:  m.MaxAttempts,
		NextRunAt:    m.NextRunAt,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func auditModelFromDomain(r *domain.AuditRecord) *AuditModel {
	if r == nil {
		return nil
	}

	return &AuditModel{
		ID:         r.ID,
		EventType:  r.EventType,
		ActorEmail: r.ActorEmail,
		Recipients: r.Recipients,
		Delivery:   r.Delivery,
		Provider:   r.Provider,
		Success:    r.Success,
		Error:      r.Error,
		PrevHash:   r.PrevHash,
		Hash:       r.Hash,
		CreatedAt:  r.CreatedAt,
	}
}

func auditModelToDomain(m *AuditModel) *domain.AuditRecord {
	if m == nil {
		return nil
	}

	return &domain.AuditRecord{
		ID:         m.ID,
		EventType:  m.EventType,
		ActorEmail: m.ActorEmail,
		Recipients: m.Recipients,
		Delivery:   m.Delivery,
		Provider:   m.Provider,
		Success:    m.Success,
		Error:      m.Error,
		PrevHash:   m.PrevHash,
		Hash:       m.Hash,
		CreatedAt:  m.CreatedAt,
	}
}

func idempotencyModelToDomain(m *IdempotencyModel) *domain.IdempotencyRecord {
	if m == nil {
		return nil
	}

	return &domain.IdempotencyRecord{
		Key:       m.Key,
		UserID:    m.UserID,
		Action:    m.Action,
		EntityID:  m.EntityID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
