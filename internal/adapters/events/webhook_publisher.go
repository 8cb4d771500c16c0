package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookPublisher forwards storefront events (moderation changes, signups,
// orders) to an HTTP endpoint. Bodies are signed with HMAC-SHA256 and any
// non-2xx status is returned as an error for the dispatcher to retry.
type WebhookPublisher struct {
	url    string
	secret []byte
	client *http.Client
}

// NewWebhookPublisher returns a publisher posting to url. A non-positive timeout
// falls back to defaultWebhookTimeout.
func NewWebhookPublisher(url, secret string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookPublisher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

// Publish POSTs the JSON envelope with these headers:
//
//	X-Storefront-Topic:       <topic>
//	X-Storefront-Event-Type:  <event.EventType>
//	X-Storefront-Aggregate:   <aggregate_type>/<aggregate_id>
//	X-Storefront-Event-Id:    <event.EventID>
//	X-Hub-Signature-256:      sha256=<hex HMAC-SHA256 of the body>
func (p *WebhookPublisher) Publish(ctx context.Context, topic string, event domain.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Storefront-Topic", topic)
	req.Header.Set("X-Storefront-Event-Type", event.EventType)
	req.Header.Set("X-Storefront-Aggregate", event.AggregateType+"/"+event.AggregateID)
	req.Header.Set("X-Storefront-Event-Id", event.EventID)
	req.Header.Set("X-Hub-Signature-256", "sha256="+p.sign(payload))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *WebhookPublisher) sign(payload []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
