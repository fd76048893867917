package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

const upstreamTimeout = 20 * time.Second

// Browser is the query surface the browse handlers need. *dispatcher.Dispatcher satisfies it.
type Browser interface {
	List(ctx context.Context, contentType models.ContentType, kind connectors.ListKind, page int) ([]models.ListItem, error)
	Search(ctx context.Context, query string, contentType models.ContentType) ([]models.ListItem, error)
	Details(ctx context.Context, contentType models.ContentType, id string) (*models.DetailRecord, error)
	EpisodeStream(ctx context.Context, id string, episode int) (*models.StreamInfo, error)
	ChapterPages(ctx context.Context, id string, chapter int) (models.PageList, error)
}

type BrowseHandler struct {
	browser Browser
}

func NewBrowseHandler(browser Browser) *BrowseHandler {
	return &BrowseHandler{browser: browser}
}

func (h *BrowseHandler) AnimeList(c *fiber.Ctx) error {
	return h.list(c, models.TypeAnime, "Failed to fetch anime list")
}

func (h *BrowseHandler) MangaList(c *fiber.Ctx) error {
	return h.list(c, models.TypeManga, "Failed to fetch manga list")
}

func (h *BrowseHandler) list(c *fiber.Ctx, contentType models.ContentType, failureMessage string) error {
	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	kind := connectors.ParseListKind(c.Query("type"))
	items, err := h.browser.List(ctx, contentType, kind, pageParam(c))
	if err != nil {
		return writeError(c, err, "No results", failureMessage)
	}
	return c.JSON(fiber.Map{"results": nonNilItems(items)})
}

func (h *BrowseHandler) AnimeDetails(c *fiber.Ctx) error {
	return h.details(c, models.TypeAnime, "Anime")
}

func (h *BrowseHandler) MangaDetails(c *fiber.Ctx) error {
	return h.details(c, models.TypeManga, "Manga")
}

func (h *BrowseHandler) details(c *fiber.Ctx, contentType models.ContentType, label string) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return badRequest(c, label+" ID is required")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	record, err := h.browser.Details(ctx, contentType, id)
	if err != nil {
		return writeError(c, err, label+" not found", "Failed to fetch "+strings.ToLower(label)+" details")
	}
	return c.JSON(fiber.Map{"details": record})
}

func (h *BrowseHandler) EpisodeStream(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	episode, ok := positiveParam(c, "episode")
	if id == "" || !ok {
		return badRequest(c, "Anime ID and episode number are required")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	stream, err := h.browser.EpisodeStream(ctx, id, episode)
	if err != nil {
		return writeError(c, err, "Episode not found", "Failed to fetch episode stream")
	}
	return c.JSON(stream)
}

func (h *BrowseHandler) ChapterPages(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	chapter, ok := positiveParam(c, "chapter")
	if id == "" || !ok {
		return badRequest(c, "Manga ID and chapter number are required")
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	pages, err := h.browser.ChapterPages(ctx, id, chapter)
	if err != nil {
		return writeError(c, err, "Chapter not found", "Failed to fetch chapter pages")
	}
	return c.JSON(fiber.Map{"pages": pages})
}

func (h *BrowseHandler) Search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return badRequest(c, "Query is required")
	}

	var contentType models.ContentType
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		parsed, err := models.ParseContentType(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		contentType = parsed
	}

	ctx, cancel := context.WithTimeout(c.Context(), upstreamTimeout)
	defer cancel()

	results, err := h.browser.Search(ctx, query, contentType)
	if err != nil {
		return writeError(c, err, "No results", "Failed to search")
	}
	return c.JSON(fiber.Map{"results": nonNilItems(results)})
}

// pageParam treats a missing, non-numeric or non-positive page as the first page.
func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func positiveParam(c *fiber.Ctx, name string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(c.Params(name)))
	if err != nil || value < 1 {
		return 0, false
	}
	return value, true
}

func nonNilItems(items []models.ListItem) []models.ListItem {
	if items == nil {
		return []models.ListItem{}
	}
	return items
}
