package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gabriel/anime-manga-browser/internal/connectors"
)

type SourcesHandler struct {
	registry  *connectors.Registry
	activeKey string
}

func NewSourcesHandler(registry *connectors.Registry, activeKey string) *SourcesHandler {
	return &SourcesHandler{registry: registry, activeKey: activeKey}
}

func (h *SourcesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"active": h.activeKey, "items": h.registry.List()})
}

func (h *SourcesHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()
	return c.JSON(fiber.Map{"items": h.registry.Health(ctx)})
}
