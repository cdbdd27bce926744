package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/insights/app/controllers"
	"github.com/ManuelReschke/insights/internal/pkg/auth"
	"github.com/ManuelReschke/insights/internal/pkg/constants"
	"github.com/ManuelReschke/insights/internal/pkg/middleware"
	"github.com/ManuelReschke/insights/internal/pkg/news"
)

// Dependencies are the services the routes are built from.
type Dependencies struct {
	Auth          *auth.Service
	News          *news.Service
	SingleSession bool
	UploadsBase   string
	UploadsDir    string
}

type ApiRouter struct {
	authController *controllers.AuthController
	newsController *controllers.NewsController
	requireAuth    fiber.Handler
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute)
	api.Post("/login", h.authController.HandleLogin)

	newsGroup := api.Group("/news", h.requireAuth)
	newsGroup.Post("/create", h.newsController.HandleCreate)
	newsGroup.Get("/", h.newsController.HandleList)
	newsGroup.Get("/:id", h.newsController.HandleGet)
	newsGroup.Put("/:id", h.newsController.HandleUpdate)
	newsGroup.Delete("/:id", h.newsController.HandleDelete)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{
		authController: controllers.NewAuthController(deps.Auth),
		newsController: controllers.NewNewsController(deps.News, deps.UploadsBase),
		requireAuth:    middleware.RequireBearer(deps.Auth, deps.SingleSession),
	}
}
