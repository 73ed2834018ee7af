package provider

import (
	"context"
	"fmt"
	"strings"
)

// Message is the payload handed to a delivery provider.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}

// Provider is the outbound notification delivery port.
type Provider interface {
	Send(ctx context.Context, msg Message) (*Response, error)
}

// Response stores provider call metadata for audit and persistence.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
