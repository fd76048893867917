package http

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/gabriel/anime-manga-browser/internal/config"
	"github.com/gabriel/anime-manga-browser/internal/connectors"
	"github.com/gabriel/anime-manga-browser/internal/http/handlers"
)

// NewServer wires the browse API. db may be nil when the payload cache is not sqlite-backed.
func NewServer(cfg config.Config, db *sql.DB, registry *connectors.Registry, browser handlers.Browser) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: jsonErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))

	health := handlers.NewHealthHandler(db, cfg.SourceKey)
	sources := handlers.NewSourcesHandler(registry, cfg.SourceKey)
	browse := handlers.NewBrowseHandler(browser)

	app.Get("/health", health.Check)

	api := app.Group("/api")
	api.Get("/anime", browse.AnimeList)
	api.Get("/anime/:id", browse.AnimeDetails)
	api.Get("/anime/:id/episode/:episode", browse.EpisodeStream)
	api.Get("/manga", browse.MangaList)
	api.Get("/manga/:id", browse.MangaDetails)
	api.Get("/manga/:id/chapter/:chapter", browse.ChapterPages)
	api.Get("/search", browse.Search)

	v1 := app.Group("/v1")
	v1.Get("/health", health.Check)
	v1.Get("/sources", sources.List)
	v1.Get("/sources/health", sources.Health)

	return app
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
