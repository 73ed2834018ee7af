package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

func TestEmailAPIProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody emailRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg-42"}`))
	}))
	defer server.Close()

	p, err := NewEmailAPIProvider(server.URL, "key-123", "noreply@example.com")
	if err != nil {
		t.Fatalf("NewEmailAPIProvider() error = %v", err)
	}

	msg := Message{
		To:      "a@example.com",
		Subject: "NDA signed",
		HTML:    "<p>done</p>",
	}

	resp, err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.MessageID != "msg-42" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "msg-42")
	}
	if gotAuth != "Bearer key-123" {
		t.Fatalf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotBody.To != msg.To {
		t.Fatalf("request.to = %q, want %q", gotBody.To, msg.To)
	}
	if gotBody.Subject != msg.Subject {
		t.Fatalf("request.subject = %q, want %q", gotBody.Subject, msg.Subject)
	}
}

func TestEmailAPIProviderSendStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unprocessable entity is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("provider failed"))
			}))
			defer server.Close()

			p, err := NewEmailAPIProvider(server.URL, "key-123", "noreply@example.com")
			if err != nil {
				t.Fatalf("NewEmailAPIProvider() error = %v", err)
			}

			_, err = p.Send(context.Background(), Message{
				To:      "a@example.com",
				Subject: "NDA signed",
				HTML:    "<p>done</p>",
			})
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}

			var provErr *Error
			if !errors.As(err, &provErr) {
				t.Fatalf("expected *provider.Error, got %T", err)
			}
			if provErr.StatusCode != tc.statusCode {
				t.Fatalf("Error.StatusCode = %d, want %d", provErr.StatusCode, tc.statusCode)
			}
		})
	}
}

func TestEmailAPIProviderInvalidMessageIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called for an invalid message")
	}))
	defer server.Close()

	p, err := NewEmailAPIProvider(server.URL, "key-123", "noreply@example.com")
	if err != nil {
		t.Fatalf("NewEmailAPIProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), Message{Subject: "no recipient"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Fatalf("IsPermanent() = false, want true for %v", err)
	}
}

func TestEmailAPIProviderSendTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(50 * time.Millisecond)

	p, err := NewEmailAPIProviderWithClient(server.URL, "key-123", "noreply@example.com", client)
	if err != nil {
		t.Fatalf("NewEmailAPIProviderWithClient() error = %v", err)
	}

	_, err = p.Send(context.Background(), Message{
		To:      "a@example.com",
		Subject: "NDA signed",
		HTML:    "<p>done</p>",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true for %v", err)
	}
}
