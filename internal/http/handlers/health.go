package handlers

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	db        *sql.DB
	sourceKey string
}

// NewHealthHandler reports process health. db is nil when no sqlite store is configured.
func NewHealthHandler(db *sql.DB, sourceKey string) *HealthHandler {
	return &HealthHandler{db: db, sourceKey: sourceKey}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbState := "disabled"
	if h.db != nil {
		dbState = "up"
		if err := h.db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"db":     "down",
				"source": h.sourceKey,
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"db":     dbState,
		"source": h.sourceKey,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
