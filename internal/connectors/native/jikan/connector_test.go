package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/fetch"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

func newTestConnector(t *testing.T, mux *http.ServeMux) *Connector {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := fetch.NewClient(&http.Client{Timeout: 5 * time.Second}, fetch.Options{})
	return NewConnectorWithOptions(server.URL, client)
}

func TestJikanListMapsItems(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/top/anime", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"mal_id":        5114,
					"title":         "Hagane no Renkinjutsushi: Fullmetal Alchemist",
					"title_english": "Fullmetal Alchemist: Brotherhood",
					"status":        "Finished Airing",
					"score":         9.1,
					"episodes":      64,
					"year":          nil,
					"aired":         map[string]any{"prop": map[string]any{"from": map[string]any{"year": 2009}}},
					"genres":        []map[string]any{{"name": "Action"}, {"name": "Drama"}},
					"images":        map[string]any{"jpg": map[string]any{"image_url": "https://cdn.example/small.jpg", "large_image_url": "https://cdn.example/large.jpg"}},
				},
				{"mal_id": 0, "title": "broken"},
				{"mal_id": 21, "title": "One Piece"},
			},
		})
	})

	connector := newTestConnector(t, mux)
	items, err := connector.List(context.Background(), models.TypeAnime, connectors.ListPopular, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if gotQuery != "filter=bypopularity&limit=24&page=2" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "5114" || first.MalID != 5114 {
		t.Fatalf("unexpected id mapping %+v", first)
	}
	if first.Title != "Fullmetal Alchemist: Brotherhood" {
		t.Fatalf("expected english title, got %q", first.Title)
	}
	if first.Poster != "https://cdn.example/large.jpg" {
		t.Fatalf("expected large poster, got %q", first.Poster)
	}
	if first.Year != "2009" {
		t.Fatalf("expected year from aired date, got %q", first.Year)
	}
	if first.Rating != "9.1" || first.Score == nil || *first.Score != 9.1 {
		t.Fatalf("unexpected rating %q score %v", first.Rating, first.Score)
	}
	if first.Episodes == nil || *first.Episodes != 64 || first.Chapters != nil {
		t.Fatalf("unexpected counts %+v", first)
	}
	if len(first.Genres) != 2 || first.Genres[0] != "Action" || first.Genres[1] != "Drama" {
		t.Fatalf("unexpected genres %v", first.Genres)
	}
	if items[1].Title != "One Piece" || items[1].Rating != "" {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}

func TestJikanListKindsSelectEndpoints(t *testing.T) {
	seen := map[string]string{}
	record := func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = r.URL.Query().Get("filter") + "|" + r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/top/anime", record)
	mux.HandleFunc("/top/manga", record)
	mux.HandleFunc("/seasons/now", record)
	mux.HandleFunc("/manga", record)

	connector := newTestConnector(t, mux)
	ctx := context.Background()

	if _, err := connector.List(ctx, models.TypeAnime, connectors.ListTrending, 1); err != nil {
		t.Fatalf("trending: %v", err)
	}
	if seen["/top/anime"] != "airing|12" {
		t.Fatalf("unexpected trending request %q", seen["/top/anime"])
	}
	if _, err := connector.List(ctx, models.TypeManga, connectors.ListRecent, 1); err != nil {
		t.Fatalf("recent: %v", err)
	}
	if seen["/top/manga"] != "publishing|12" {
		t.Fatalf("unexpected recent request %q", seen["/top/manga"])
	}
	if _, err := connector.List(ctx, models.TypeAnime, connectors.ListNew, 1); err != nil {
		t.Fatalf("new anime: %v", err)
	}
	if _, ok := seen["/seasons/now"]; !ok {
		t.Fatalf("expected new anime to use the current season")
	}
	if _, err := connector.List(ctx, models.TypeManga, connectors.ListNew, 1); err != nil {
		t.Fatalf("new manga: %v", err)
	}
	if _, ok := seen["/manga"]; !ok {
		t.Fatalf("expected new manga to query by start date")
	}
}

func TestJikanSearchSendsQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "berserk" || r.URL.Query().Get("sfw") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"mal_id":2,"title":"Berserk","chapters":null,"published":{"prop":{"from":{"year":1989}}}}]}`))
	})

	connector := newTestConnector(t, mux)
	items, err := connector.Search(context.Background(), models.TypeManga, " berserk ")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(items) != 1 || items[0].Type != models.TypeManga || items[0].Year != "1989" {
		t.Fatalf("unexpected search results %+v", items)
	}
	if items[0].Chapters != nil {
		t.Fatalf("expected unknown chapter count to stay absent")
	}
}

func TestJikanDetailsGeneratesIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/anime/21/full", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{
			"mal_id":21,"title":"One Piece","title_japanese":"ワンピース",
			"episodes":1100,"year":1999,"synopsis":"  Pirates.  ",
			"studios":[{"name":"Toei Animation"}],
			"images":{"jpg":{"image_url":"https://cdn.example/s.jpg","large_image_url":"https://cdn.example/l.jpg"}}
		}}`))
	})
	mux.HandleFunc("/manga/2/full", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":2,"title":"Berserk","chapters":null,"authors":[{"name":"Miura, Kentarou"}]}}`))
	})

	connector := newTestConnector(t, mux)

	anime, err := connector.Details(context.Background(), models.TypeAnime, "21")
	if err != nil {
		t.Fatalf("anime details failed: %v", err)
	}
	if anime.Title != "One Piece" || anime.Description != "Pirates." || anime.Year != "1999" {
		t.Fatalf("unexpected anime details %+v", anime)
	}
	if anime.Banner != "https://cdn.example/l.jpg" || len(anime.Studios) != 1 {
		t.Fatalf("expected banner and studios, got %+v", anime)
	}
	if len(anime.Episodes) != maxGeneratedIndex {
		t.Fatalf("expected index capped at %d, got %d", maxGeneratedIndex, len(anime.Episodes))
	}
	if anime.Episodes[0].Number != 1 || anime.Episodes[0].Title != "Episode 1" {
		t.Fatalf("unexpected first episode %+v", anime.Episodes[0])
	}
	if anime.TotalEpisodes == nil || *anime.TotalEpisodes != 1100 {
		t.Fatalf("expected reported total 1100, got %v", anime.TotalEpisodes)
	}

	manga, err := connector.Details(context.Background(), models.TypeManga, "2")
	if err != nil {
		t.Fatalf("manga details failed: %v", err)
	}
	if len(manga.Chapters) != 0 || manga.TotalChapters == nil || *manga.TotalChapters != 0 {
		t.Fatalf("expected empty chapter index with zero total, got %+v", manga)
	}
	if len(manga.Authors) != 1 || manga.Authors[0] != "Miura, Kentarou" {
		t.Fatalf("unexpected authors %v", manga.Authors)
	}
}

func TestJikanDetailsAiringTitleSerializesEmptyIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/anime/52991/full", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":52991,"title":"Sousou no Frieren","status":"Currently Airing","episodes":null}}`))
	})

	connector := newTestConnector(t, mux)
	record, err := connector.Details(context.Background(), models.TypeAnime, "52991")
	if err != nil {
		t.Fatalf("details failed: %v", err)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(body["episodes"]) != "[]" {
		t.Fatalf("expected empty episodes array, got %s", raw)
	}
	if string(body["totalEpisodes"]) != "0" {
		t.Fatalf("expected totalEpisodes 0, got %s", raw)
	}
	if _, ok := body["chapters"]; ok {
		t.Fatalf("anime record should not carry chapters: %s", raw)
	}
}

func TestJikanDetailsNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/anime/404/full", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/anime/7/full", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":7}}`))
	})
	mux.HandleFunc("/anime/500/full", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	connector := newTestConnector(t, mux)
	ctx := context.Background()

	for _, id := range []string{"404", "7", "naruto"} {
		if _, err := connector.Details(ctx, models.TypeAnime, id); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected not found for id %q, got %v", id, err)
		}
	}

	_, err := connector.Details(ctx, models.TypeAnime, "500")
	if err == nil || errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected upstream failure for 500, got %v", err)
	}
}

func TestJikanStreamsAndPagesUnsupported(t *testing.T) {
	connector := newTestConnector(t, http.NewServeMux())

	if _, err := connector.EpisodeStream(context.Background(), "21", 1); !errors.Is(err, connectors.ErrUnsupported) {
		t.Fatalf("expected unsupported stream, got %v", err)
	}
	if _, err := connector.ChapterPages(context.Background(), "2", 1); !errors.Is(err, connectors.ErrUnsupported) {
		t.Fatalf("expected unsupported pages, got %v", err)
	}
}

func TestJikanHealthCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":200}`))
	})

	connector := newTestConnector(t, mux)
	if err := connector.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}
