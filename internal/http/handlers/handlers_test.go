package handlers_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gabriel/anime-manga-browser/internal/config"
	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/database"
	"github.com/gabriel/anime-manga-browser/internal/dispatcher"
	apihttp "github.com/gabriel/anime-manga-browser/internal/http"
	"github.com/gabriel/anime-manga-browser/internal/models"
	"github.com/gofiber/fiber/v2"
)

type fakeSource struct {
	key       string
	failAll   bool
	healthErr error
}

func (f *fakeSource) Key() string { return f.key }
func (f *fakeSource) Name() string { return "Fake " + f.key }
func (f *fakeSource) Kind() string { return connectors.KindNative }
func (f *fakeSource) HealthCheck(context.Context) error { return f.healthErr }

func (f *fakeSource) List(_ context.Context, contentType models.ContentType, kind connectors.ListKind, page int) ([]models.ListItem, error) {
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	return []models.ListItem{{ID: fmt.Sprintf("%s-%d", kind, page), Title: "Listed", Type: contentType, Genres: []string{}}}, nil
}

func (f *fakeSource) Search(_ context.Context, contentType models.ContentType, query string) ([]models.ListItem, error) {
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	return []models.ListItem{{ID: string(contentType), Title: query, Type: contentType, Genres: []string{}}}, nil
}

func (f *fakeSource) Details(_ context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error) {
	if f.failAll {
		return nil, errors.New("upstream down")
	}
	if id == "missing" {
		return nil, fmt.Errorf("%s %s: %w", contentType, id, models.ErrNotFound)
	}
	record := &models.DetailRecord{ID: id, Title: "Naruto", Type: contentType, Genres: []string{"Action"}}
	record.SetIndex([]models.IndexEntry{{Number: 1}, {Number: 2}}, 0)
	return record, nil
}

func (f *fakeSource) EpisodeStream(_ context.Context, id string, episode int) (*models.StreamInfo, error) {
	return &models.StreamInfo{URL: fmt.Sprintf("https://cdn.example/%s/%d.m3u8", id, episode)}, nil
}

func (f *fakeSource) ChapterPages(_ context.Context, id string, chapter int) (models.PageList, error) {
	if id == "empty" {
		return models.PageList{}, nil
	}
	return models.PageList{"https://img.example/1.jpg", "https://img.example/2.jpg"}, nil
}

func setupApp(t *testing.T, source *fakeSource, db *sql.DB) *fiber.App {
	t.Helper()

	registry := connectors.NewRegistry()
	if err := registry.Register(source); err != nil {
		t.Fatalf("register source: %v", err)
	}
	cfg := config.Config{AppName: "test", SourceKey: source.key}
	app := apihttp.NewServer(cfg, db, registry, dispatcher.New(registry, source.key, nil, nil))
	t.Cleanup(func() {
		_ = app.Shutdown()
	})
	return app
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := database.ApplyMigrations(db, database.MigrationsFS("")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func doGet(t *testing.T, app *fiber.App, target string, expectedStatus int) map[string]any {
	t.Helper()

	res, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("GET %s failed: %v", target, err)
	}
	defer res.Body.Close()
	if res.StatusCode != expectedStatus {
		t.Fatalf("GET %s: expected %d, got %d", target, expectedStatus, res.StatusCode)
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s payload: %v", target, err)
	}
	return payload
}

func TestListEndpointsNormalizePageAndKind(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, nil)

	payload := doGet(t, app, "/api/anime?type=trending&page=3", http.StatusOK)
	results := payload["results"].([]any)
	if got := results[0].(map[string]any)["id"]; got != "trending-3" {
		t.Fatalf("expected trending-3, got %v", got)
	}

	payload = doGet(t, app, "/api/manga?type=bogus&page=abc", http.StatusOK)
	results = payload["results"].([]any)
	first := results[0].(map[string]any)
	if first["id"] != "popular-1" || first["type"] != "manga" {
		t.Fatalf("expected popular-1 manga item, got %v", first)
	}

	payload = doGet(t, app, "/api/anime?page=-4", http.StatusOK)
	if got := payload["results"].([]any)[0].(map[string]any)["id"]; got != "popular-1" {
		t.Fatalf("expected negative page to become 1, got %v", got)
	}
}

func TestListFailureIsGeneric500(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake", failAll: true}, nil)

	payload := doGet(t, app, "/api/anime", http.StatusInternalServerError)
	if payload["error"] != "Failed to fetch anime list" {
		t.Fatalf("unexpected error payload %v", payload)
	}
	payload = doGet(t, app, "/api/manga/1", http.StatusInternalServerError)
	if payload["error"] != "Failed to fetch manga details" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestSearchEndpoint(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, nil)

	payload := doGet(t, app, "/api/search", http.StatusBadRequest)
	if payload["error"] != "Query is required" {
		t.Fatalf("unexpected error payload %v", payload)
	}
	doGet(t, app, "/api/search?q=naruto&type=novel", http.StatusBadRequest)

	payload = doGet(t, app, "/api/search?q=naruto", http.StatusOK)
	results := payload["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected anime and manga results, got %d", len(results))
	}
	if results[0].(map[string]any)["type"] != "anime" || results[1].(map[string]any)["type"] != "manga" {
		t.Fatalf("expected anime first, got %v", results)
	}

	payload = doGet(t, app, "/api/search?q=naruto&type=MANGA", http.StatusOK)
	if results := payload["results"].([]any); len(results) != 1 {
		t.Fatalf("expected only manga results, got %v", results)
	}
}

func TestDetailsEndpoint(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, nil)

	payload := doGet(t, app, "/api/anime/naruto", http.StatusOK)
	details := payload["details"].(map[string]any)
	if details["title"] != "Naruto" || details["totalEpisodes"] != float64(2) {
		t.Fatalf("unexpected details %v", details)
	}
	if len(details["episodes"].([]any)) != 2 {
		t.Fatalf("expected 2 episodes, got %v", details["episodes"])
	}

	payload = doGet(t, app, "/api/anime/missing", http.StatusNotFound)
	if payload["error"] != "Anime not found" {
		t.Fatalf("unexpected error payload %v", payload)
	}
	payload = doGet(t, app, "/api/manga/missing", http.StatusNotFound)
	if payload["error"] != "Manga not found" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestEpisodeAndChapterEndpoints(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, nil)

	payload := doGet(t, app, "/api/anime/naruto/episode/4", http.StatusOK)
	if payload["url"] != "https://cdn.example/naruto/4.m3u8" {
		t.Fatalf("unexpected stream %v", payload)
	}
	if subtitles, ok := payload["subtitles"].([]any); !ok || len(subtitles) != 0 {
		t.Fatalf("expected empty subtitles list, got %v", payload["subtitles"])
	}
	doGet(t, app, "/api/anime/naruto/episode/zero", http.StatusBadRequest)
	doGet(t, app, "/api/anime/naruto/episode/0", http.StatusBadRequest)

	payload = doGet(t, app, "/api/manga/one-piece/chapter/1", http.StatusOK)
	if pages := payload["pages"].([]any); len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %v", pages)
	}
	payload = doGet(t, app, "/api/manga/empty/chapter/1", http.StatusNotFound)
	if payload["error"] != "Chapter not found" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestSourcesEndpoints(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake", healthErr: errors.New("offline")}, nil)

	payload := doGet(t, app, "/v1/sources", http.StatusOK)
	if payload["active"] != "fake" || len(payload["items"].([]any)) != 1 {
		t.Fatalf("unexpected sources payload %v", payload)
	}

	payload = doGet(t, app, "/v1/sources/health", http.StatusOK)
	item := payload["items"].([]any)[0].(map[string]any)
	if item["healthy"] != false || item["error"] != "offline" {
		t.Fatalf("unexpected health item %v", item)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, openTestDB(t))
	payload := doGet(t, app, "/health", http.StatusOK)
	if payload["status"] != "ok" || payload["db"] != "up" {
		t.Fatalf("unexpected health payload %v", payload)
	}

	app = setupApp(t, &fakeSource{key: "fake"}, nil)
	payload = doGet(t, app, "/v1/health", http.StatusOK)
	if payload["db"] != "disabled" {
		t.Fatalf("expected db disabled, got %v", payload)
	}
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	app := setupApp(t, &fakeSource{key: "fake"}, nil)

	payload := doGet(t, app, "/api/unknown", http.StatusNotFound)
	if _, ok := payload["error"]; !ok {
		t.Fatalf("expected error field, got %v", payload)
	}
}
