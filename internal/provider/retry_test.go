package provider

import (
	"context"
	"testing"
	"time"
)

type scriptedProvider struct {
	calls     int
	responses []func() (*Response, error)
}

func (p *scriptedProvider) Send(ctx context.Context, msg Message) (*Response, error) {
	idx := p.calls
	p.calls++
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx]()
}

func newNoSleepSender(p Provider, tries int) (*RetryingSender, *[]time.Duration) {
	slept := &[]time.Duration{}
	s := NewRetryingSender(p, tries)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	s.randFloat = func() float64 { return 0 }
	return s, slept
}

func TestRetryingSenderTransientThenSuccess(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{
		responses: []func() (*Response, error){
			func() (*Response, error) { return nil, &Error{StatusCode: 500, Transient: true} },
			func() (*Response, error) { return nil, &Error{StatusCode: 503, Transient: true} },
			func() (*Response, error) { return &Response{StatusCode: 200}, nil },
		},
	}

	s, slept := newNoSleepSender(p, 3)
	resp, err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "x"})
	if err != nil {
		t.Fatalf("Send() unexpected error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if p.calls != 3 {
		t.Fatalf("provider calls = %d, want 3", p.calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *slept, want)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, (*slept)[i], want[i])
		}
	}
}

func TestRetryingSenderPermanentShortCircuits(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{
		responses: []func() (*Response, error){
			func() (*Response, error) { return nil, &Error{StatusCode: 422, Transient: false} },
		},
	}

	s, slept := newNoSleepSender(p, 3)
	_, err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", p.calls)
	}
	if len(*slept) != 0 {
		t.Fatalf("sleeps = %v, want none", *slept)
	}
}

func TestRetryingSenderExhaustsBudget(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{
		responses: []func() (*Response, error){
			func() (*Response, error) { return nil, &Error{StatusCode: 500, Transient: true} },
		},
	}

	s, _ := newNoSleepSender(p, 3)
	_, err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "x"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if p.calls != 3 {
		t.Fatalf("provider calls = %d, want 3", p.calls)
	}
}

func TestRetryingSenderDelayCapAndJitter(t *testing.T) {
	t.Parallel()

	s := NewRetryingSender(&scriptedProvider{}, 6)
	s.randFloat = func() float64 { return 1 }

	// Attempt 5 would be 16s uncapped; the cap holds it at 10s, jitter adds 30%.
	got := s.delayFor(5)
	want := 13 * time.Second
	if got != want {
		t.Fatalf("delayFor(5) = %v, want %v", got, want)
	}

	s.randFloat = func() float64 { return 0 }
	if got := s.delayFor(1); got != time.Second {
		t.Fatalf("delayFor(1) = %v, want 1s", got)
	}
}
