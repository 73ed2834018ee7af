package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookProviderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotBody webhookRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("X-Request-ID", "hook-7")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	p, err := NewWebhookProvider(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookProvider() error = %v", err)
	}

	msg := Message{
		To:      "a@example.com",
		Subject: "SLA breach",
		HTML:    "<p>job 9 exhausted</p>",
	}

	resp, err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("StatusCode = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if resp.MessageID != "hook-7" {
		t.Fatalf("MessageID = %q, want %q", resp.MessageID, "hook-7")
	}
	if gotBody.To != msg.To || gotBody.Subject != msg.Subject || gotBody.Body != msg.HTML {
		t.Fatalf("unexpected webhook payload: %+v", gotBody)
	}
	if gotBody.Type != "notification" {
		t.Fatalf("payload type = %q, want notification", gotBody.Type)
	}
}

func TestWebhookProviderServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, err := NewWebhookProvider(server.URL)
	if err != nil {
		t.Fatalf("NewWebhookProvider() error = %v", err)
	}

	_, err = p.Send(context.Background(), Message{To: "a@example.com", Subject: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true for %v", err)
	}
}

func TestNewWebhookProviderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWebhookProvider(""); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewWebhookProvider("::bad::"); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}
