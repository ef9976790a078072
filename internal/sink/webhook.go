package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/varalys/trello-watchman/internal/types"
)

const (
	webhookSchemaVersion = "1"
	webhookAttempts      = 3
)

// Detection is one notification as carried by the webhook envelope.
type Detection struct {
	LocalTime     string      `json:"localtime"`
	Scope         types.Scope `json:"scope"`
	Severity      string      `json:"severity"`
	DetectionType string      `json:"detection_type"`
	DetectionData any         `json:"detection_data"`
}

type webhookEnvelope struct {
	Tool       string      `json:"tool"`
	Version    string      `json:"version,omitempty"`
	Schema     string      `json:"schema_version"`
	Source     string      `json:"source"`
	Errors     []string    `json:"errors,omitempty"`
	Detections []Detection `json:"detections"`
}

// Webhook buffers detections and POSTs them as a single JSON envelope on
// Close. Nothing is sent when the run produced no detections and no errors.
type Webhook struct {
	url, token, version string
	client              *http.Client
	now                 func() time.Time
	retryInterval       time.Duration

	mu         sync.Mutex
	detections []Detection
	errors     []string
}

// NewWebhook returns a webhook sink. token, when set, is sent as a bearer
// token.
func NewWebhook(url, token, version string) *Webhook {
	return &Webhook{
		url:     url,
		token:   token,
		version: version,
		client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
		retryInterval: time.Second,
	}
}

func (w *Webhook) Info(string) {}

func (w *Webhook) Critical(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors = append(w.errors, msg)
}

func (w *Webhook) Notify(record any, scope types.Scope, ruleName, severity string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detections = append(w.detections, Detection{
		LocalTime:     w.now().Format(LocalTimeFormat),
		Scope:         scope,
		Severity:      severity,
		DetectionType: ruleName,
		DetectionData: record,
	})
}

// Close delivers the buffered envelope.
func (w *Webhook) Close() error {
	return w.Flush(context.Background())
}

// Flush POSTs the buffered envelope and resets the buffer.
func (w *Webhook) Flush(ctx context.Context) error {
	w.mu.Lock()
	env := webhookEnvelope{
		Tool:       "trello-watchman",
		Version:    w.version,
		Schema:     webhookSchemaVersion,
		Source:     Source,
		Errors:     w.errors,
		Detections: w.detections,
	}
	w.detections, w.errors = nil, nil
	w.mu.Unlock()

	if len(env.Detections) == 0 && len(env.Errors) == 0 {
		return nil
	}
	if env.Detections == nil {
		env.Detections = []Detection{}
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode webhook envelope: %w", err)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.retryInterval
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, w.post(ctx, body)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(webhookAttempts))
	return err
}

// post makes one delivery attempt. Transport failures, 429 and 5xx are
// retried; any other non-2xx status is final.
func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return backoff.Permanent(fmt.Errorf("webhook status %d", resp.StatusCode))
}
