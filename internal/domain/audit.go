package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderTag identifies which delivery path produced an attempt.
type ProviderTag string

const (
	ProviderPrimary   ProviderTag = "primary"
	ProviderSecondary ProviderTag = "secondary"
)

func (p ProviderTag) String() string { return string(p) }

func (p ProviderTag) IsValid() bool {
	switch p {
	case ProviderPrimary, ProviderSecondary:
		return true
	}
	return false
}

// AuditRecord is one link in the append-only delivery audit chain. Each
// record stores the hash of its predecessor; the first record has a nil
// PrevHash. Rows are never updated or deleted by normal operation.
type AuditRecord struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	EventType  string      `gorm:"type:varchar(100);not null"`
	ActorEmail string      `gorm:"type:varchar(255);not null"`
	Recipients string      `gorm:"type:text;not null"`
	Delivery   Channel     `gorm:"type:varchar(20);not null"`
	Provider   ProviderTag `gorm:"type:varchar(20);not null"`
	Success    bool        `gorm:"not null"`
	Error      *string     `gorm:"type:text"`
	PrevHash   *string     `gorm:"type:char(64)"`
	Hash       string      `gorm:"type:char(64);not null"`
	CreatedAt  time.Time
}

func (r *AuditRecord) Validate() error {
	if strings.TrimSpace(r.EventType) == "" {
		return fmt.Errorf("%w: event type is required", ErrValidation)
	}
	if !r.Provider.IsValid() {
		return fmt.Errorf("%w: invalid provider tag %q", ErrValidation, r.Provider)
	}
	return nil
}
