// Package notifications delivers source health transitions to operators.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message is the JSON body posted to webhooks.
type Message struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Context map[string]any `json:"context,omitempty"`
}

// SourceHealthMessage describes a source turning unhealthy or recovering.
func SourceHealthMessage(sourceKey, sourceName string, healthy bool, cause string) Message {
	if healthy {
		return Message{
			Title:   fmt.Sprintf("%s recovered", sourceName),
			Body:    fmt.Sprintf("Source %q is answering health checks again.", sourceKey),
			Context: map[string]any{"source": sourceKey, "healthy": true},
		}
	}
	return Message{
		Title:   fmt.Sprintf("%s is unhealthy", sourceName),
		Body:    fmt.Sprintf("Source %q failed its health check: %s", sourceKey, cause),
		Context: map[string]any{"source": sourceKey, "healthy": false, "error": cause},
	}
}

type Notifier interface {
	Notify(ctx context.Context, message Message) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Message) error {
	return nil
}

// LogNotifier writes every message to the service log, so transitions are visible even
// without a webhook.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, message Message) error {
	level := slog.LevelInfo
	if healthy, ok := message.Context["healthy"].(bool); ok && !healthy {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, message.Title, "body", message.Body, "context", message.Context)
	return nil
}

const maxErrorBody = 512

type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

func NewWebhookNotifier(webhookURL string) (*WebhookNotifier, error) {
	return NewWebhookNotifierWithClient(webhookURL, &http.Client{Timeout: 10 * time.Second})
}

func NewWebhookNotifierWithClient(webhookURL string, client *http.Client) (*WebhookNotifier, error) {
	endpoint := strings.TrimSpace(webhookURL)
	if endpoint == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("webhook url must be http(s), got %q", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{endpoint: endpoint, client: client}, nil
}

// Notify posts message as JSON. A non-2xx answer is an error carrying the start of the
// response body.
func (w *WebhookNotifier) Notify(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if trimmed := strings.TrimSpace(string(snippet)); trimmed != "" {
		return fmt.Errorf("webhook answered %d: %s", res.StatusCode, trimmed)
	}
	return fmt.Errorf("webhook answered %d", res.StatusCode)
}

// MultiNotifier fans a message out to every notifier and stops at the first failure.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(items ...Notifier) *MultiNotifier {
	multi := &MultiNotifier{}
	for _, item := range items {
		if item != nil {
			multi.notifiers = append(multi.notifiers, item)
		}
	}
	return multi
}

func (m *MultiNotifier) Notify(ctx context.Context, message Message) error {
	for _, notifier := range m.notifiers {
		if err := notifier.Notify(ctx, message); err != nil {
			return err
		}
	}
	return nil
}
