package service

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{name: "first attempt is immediate", attempt: 0, want: 0},
		{name: "after first failure", attempt: 1, want: 60 * time.Second},
		{name: "after second failure", attempt: 2, want: 300 * time.Second},
		{name: "after third failure", attempt: 3, want: 900 * time.Second},
		{name: "after fourth failure", attempt: 4, want: 3600 * time.Second},
		{name: "beyond table clamps", attempt: 9, want: 3600 * time.Second},
		{name: "negative clamps to immediate", attempt: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := backoffDelay(tt.attempt); got != tt.want {
				t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoffDelayIsMonotonic(t *testing.T) {
	t.Parallel()

	prev := backoffDelay(0)
	for attempt := 1; attempt < 10; attempt++ {
		got := backoffDelay(attempt)
		if got < prev {
			t.Fatalf("backoffDelay(%d) = %v, less than backoffDelay(%d) = %v", attempt, got, attempt-1, prev)
		}
		prev = got
	}
}
