package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/cache"
)

func TestClientTextSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, Options{})
	body, err := client.Text(context.Background(), server.URL+"/anime")
	if err != nil {
		t.Fatalf("text failed: %v", err)
	}
	if body != `<html><body>ok</body></html>` {
		t.Fatalf("unexpected body: %s", body)
	}
	if gotUA != DefaultUserAgent {
		t.Fatalf("expected browser user agent, got %q", gotUA)
	}
	if gotAccept != AcceptHTML {
		t.Fatalf("expected html accept header, got %q", gotAccept)
	}
}

func TestClientReturnsFetchErrorOnNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, Options{})
	_, err := client.Text(context.Background(), server.URL+"/missing")
	if err == nil {
		t.Fatalf("expected error for 404")
	}

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %T", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fetchErr.StatusCode)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected IsNotFound to report upstream 404")
	}
}

func TestClientReturnsFetchErrorOnTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(&http.Client{Timeout: time.Second}, Options{})
	_, err := client.Text(context.Background(), endpoint)

	var fetchErr *Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %v", err)
	}
	if fetchErr.Err == nil || IsNotFound(err) {
		t.Fatalf("expected transport error, got %+v", fetchErr)
	}
}

func TestClientJSONUsesPayloadCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"data":{"mal_id":1}}`))
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, Options{
		Cache:    cache.NewMemoryStore(),
		CacheTTL: time.Hour,
	})

	for range 3 {
		var payload struct {
			Data struct {
				MalID int `json:"mal_id"`
			} `json:"data"`
		}
		if err := client.JSON(context.Background(), server.URL+"/anime/1/full", &payload); err != nil {
			t.Fatalf("json failed: %v", err)
		}
		if payload.Data.MalID != 1 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 upstream hit inside the revalidation window, got %d", got)
	}
}

func TestClientJSONDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, Options{})
	var payload map[string]any
	if err := client.JSON(context.Background(), server.URL, &payload); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestClientProbeBypassesCache(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 5 * time.Second}, Options{
		Cache:    cache.NewMemoryStore(),
		CacheTTL: time.Hour,
	})
	for i := 0; i < 2; i++ {
		if err := client.Probe(context.Background(), server.URL); err != nil {
			t.Fatalf("probe failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected every probe to reach the upstream, got %d hits", got)
	}
}
