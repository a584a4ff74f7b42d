package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"negotiation-tutor/internal/platform/apierr"
	"negotiation-tutor/internal/platform/logger"
)

// NewServer builds the base fiber app: panic recovery, access logs, JSON
// error responses and a health check.
func NewServer(appName string, log *logger.Logger) *fiber.App {
	if log == nil {
		log = logger.Nop()
	}
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"app":    appName,
			"status": "ok",
		})
	})

	return app
}

// ErrorHandler renders errors as {"error": message, "code": code}. Status
// comes from *apierr.Error or *fiber.Error, otherwise 500.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := apierr.StatusOf(err)
		code := ""
		var ae *apierr.Error
		if errors.As(err, &ae) {
			code = ae.Code
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
		}
		body := fiber.Map{"error": err.Error()}
		if code != "" {
			body["code"] = code
		}
		return c.Status(status).JSON(body)
	}
}
