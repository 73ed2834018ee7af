package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Channel
		wantErr bool
	}{
		{name: "valid lowercase", input: "email", want: ChannelEmail},
		{name: "uppercase with spaces", input: " SMS ", want: ChannelSMS},
		{name: "empty defaults to email", input: "", want: ChannelEmail},
		{name: "invalid", input: "fax", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseChannelFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseChannelFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseChannelFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseChannelFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNotificationJobValidate(t *testing.T) {
	t.Parallel()

	valid := NotificationJob{
		Recipient:   "a@example.com",
		Subject:     "NDA signed",
		Body:        "<p>signed</p>",
		Channel:     ChannelEmail,
		MaxAttempts: DefaultMaxAttempts,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(j *NotificationJob)
	}{
		{name: "missing recipient", mutate: func(j *NotificationJob) { j.Recipient = "  " }},
		{name: "missing subject", mutate: func(j *NotificationJob) { j.Subject = "" }},
		{name: "bad channel", mutate: func(j *NotificationJob) { j.Channel = "pigeon" }},
		{name: "zero max attempts", mutate: func(j *NotificationJob) { j.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := valid
			tt.mutate(&job)
			if err := job.Validate(); !errors.Is(err, ErrValidation) {
				t.Fatalf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNotificationJobExhausted(t *testing.T) {
	t.Parallel()

	job := NotificationJob{AttemptCount: 4, MaxAttempts: 5}
	if job.Exhausted() {
		t.Fatal("job with remaining budget should not be exhausted")
	}
	job.AttemptCount = 5
	if !job.Exhausted() {
		t.Fatal("job at max attempts should be exhausted")
	}
}

func TestIdempotencyRecordState(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	rec := IdempotencyRecord{ExpiresAt: now.Add(time.Hour)}
	if rec.Completed() {
		t.Fatal("record without entity id should not be completed")
	}
	if rec.Expired(now) {
		t.Fatal("record before expiry should not be expired")
	}

	entityID := int64(42)
	rec.EntityID = &entityID
	if !rec.Completed() {
		t.Fatal("record with entity id should be completed")
	}
	if !rec.Expired(now.Add(2 * time.Hour)) {
		t.Fatal("record past expiry should be expired")
	}
}
