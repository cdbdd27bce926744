package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers the public routes first and the API second.
func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps.UploadsDir), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
