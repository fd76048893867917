package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), SourceHealthMessage("jikan", "Jikan", false, "timeout")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if received.Title != "Jikan is unhealthy" || received.Context["error"] != "timeout" {
		t.Fatalf("unexpected message %+v", received)
	}
}

func TestWebhookNotifierRejectsFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream gone"))
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	err = notifier.Notify(context.Background(), SourceHealthMessage("jikan", "Jikan", true, ""))
	if err == nil || !strings.Contains(err.Error(), "502: upstream gone") {
		t.Fatalf("expected 502 error with body, got %v", err)
	}
	if _, err := NewWebhookNotifier("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewWebhookNotifier("hooks.example/x"); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, Message) error {
	return errors.New("down")
}

func TestMultiNotifierStopsAtFirstError(t *testing.T) {
	multi := NewMultiNotifier(NoopNotifier{}, nil, failingNotifier{})
	if err := multi.Notify(context.Background(), Message{Title: "x"}); err == nil {
		t.Fatalf("expected error from failing notifier")
	}
}

func TestLogNotifierWritesTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	notifier := NewMultiNotifier(NewLogNotifier(logger))

	if err := notifier.Notify(context.Background(), SourceHealthMessage("jikan", "Jikan", false, "timeout")); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := notifier.Notify(context.Background(), SourceHealthMessage("jikan", "Jikan", true, "")); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second line: %v", err)
	}
	if first["level"] != "WARN" || first["msg"] != "Jikan is unhealthy" {
		t.Fatalf("unexpected unhealthy entry %v", first)
	}
	if second["level"] != "INFO" || second["msg"] != "Jikan recovered" {
		t.Fatalf("unexpected recovery entry %v", second)
	}
}
