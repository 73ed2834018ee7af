package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel represents the delivery channel tag stored on a job.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if ch == "" {
		return ChannelEmail, nil
	}
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// DefaultMaxAttempts bounds automatic redelivery for a job.
const DefaultMaxAttempts = 5

// NotificationJob is a unit of durable, retryable outbound notification work.
// A job row exists until its first successful delivery; a job that exhausts
// its attempt budget is kept permanently as a terminal-failure marker.
type NotificationJob struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Recipient    string  `gorm:"type:varchar(255);not null"`
	Subject      string  `gorm:"type:varchar(998);not null"`
	Body         string  `gorm:"type:text;not null"`
	UserID       *int64  `gorm:"index"`
	Channel      Channel `gorm:"type:varchar(20);not null"`
	AttemptCount int     `gorm:"not null;default:0"`
	MaxAttempts  int     `gorm:"not null;default:5"`
	NextRunAt    time.Time
	LastError    *string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (j *NotificationJob) Validate() error {
	if strings.TrimSpace(j.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(j.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if !j.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, j.Channel)
	}
	if j.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive", ErrValidation)
	}
	return nil
}

// Exhausted reports whether the job has consumed its whole attempt budget.
func (j *NotificationJob) Exhausted() bool {
	return j.AttemptCount >= j.MaxAttempts
}
