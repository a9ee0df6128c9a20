package ucp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OrderEventType enumerates the order lifecycle events the gateway emits.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order_created"
	OrderEventUpdated OrderEventType = "order_updated"
)

// OrderEvent is delivered to an [OrderNotifier] whenever an agent-created
// order is persisted or its status changes.
type OrderEvent struct {
	Type         OrderEventType `json:"type"`
	CheckoutID   string         `json:"checkout_id"`
	Status       string         `json:"status"`
	Total        int64          `json:"total"`
	Currency     string         `json:"currency"`
	AgentProfile string         `json:"agent_profile,omitempty"`
}

// OrderNotifier is the extension point for reacting to order lifecycle
// events. Implementations must tolerate being called best-effort: a notify
// failure never rolls back the order.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, event OrderEvent) error
}

// OrderNotifierFunc lifts bare functions into [OrderNotifier].
type OrderNotifierFunc func(ctx context.Context, event OrderEvent) error

// NotifyOrder delegates to the wrapped function.
func (f OrderNotifierFunc) NotifyOrder(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}

// WebhookNotifier posts order events to an HTTP endpoint, signing each
// payload with an HMAC-SHA256 over the body.
type WebhookNotifier struct {
	Endpoint string
	Secret   []byte
	// Header carries the payload signature. Defaults to "UCP-Webhook-Signature".
	Header string
	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client
}

// NotifyOrder implements [OrderNotifier].
func (n *WebhookNotifier) NotifyOrder(ctx context.Context, event OrderEvent) error {
	if n.Endpoint == "" {
		return fmt.Errorf("ucp: webhook endpoint must be configured")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ucp: marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ucp: build webhook request: %w", err)
	}
	header := n.Header
	if header == "" {
		header = "UCP-Webhook-Signature"
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("UCP-Version", ProtocolVersion)
	req.Header.Set(header, signWebhookPayload(n.Secret, body))

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ucp: send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ucp: webhook endpoint %s returned %s: %s", n.Endpoint, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func signWebhookPayload(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
