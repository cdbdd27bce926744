package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/insights/internal/pkg/constants"
)

// HttpRouter serves everything outside /api.
type HttpRouter struct {
	uploadsDir string
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.PublicRoute, func(c *fiber.Ctx) error {
		return c.SendString("Backend server is running")
	})

	// static uploads, only when images live on local disk
	if h.uploadsDir != "" {
		app.Static(constants.UploadsRoute, h.uploadsDir, fiber.Static{
			CacheDuration: 10 * time.Second,
			Compress:      false,
			MaxAge:        604800, // 7 days
		})
	}
}

func NewHttpRouter(uploadsDir string) *HttpRouter {
	return &HttpRouter{uploadsDir: uploadsDir}
}
