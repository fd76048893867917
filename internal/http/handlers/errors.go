package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/gabriel/anime-manga-browser/internal/dispatcher"
	"github.com/gabriel/anime-manga-browser/internal/models"
)

// writeError maps dispatcher errors onto status codes. Input errors are shown verbatim,
// upstream failures are logged with their cause and answered with failureMessage.
func writeError(c *fiber.Ctx, err error, notFoundMessage, failureMessage string) error {
	switch {
	case errors.Is(err, dispatcher.ErrInvalidInput):
		return badRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFoundMessage})
	default:
		slog.Error(failureMessage,
			"error", err,
			"path", c.Path(),
			"request_id", requestID(c),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": failureMessage})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
