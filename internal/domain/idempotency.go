package domain

import "time"

// IdempotencyTTL is how long a claimed key stays valid before the sweeper
// may remove it, completed or not.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyRecord maps a caller-supplied key to at most one side-effecting
// result. A record with a nil EntityID marks a claim whose handler has not
// completed yet; once EntityID is set, calls with the same key replay.
type IdempotencyRecord struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	UserID    int64  `gorm:"not null;index"`
	Action    string `gorm:"type:varchar(100);not null"`
	EntityID  *int64
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Completed reports whether the wrapped action already recorded its result.
func (r *IdempotencyRecord) Completed() bool {
	return r.EntityID != nil
}

// Expired reports whether the record is past its expiry at the given time.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
