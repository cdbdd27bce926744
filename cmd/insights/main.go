package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/insights/app/repository"
	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/auth"
	"github.com/ManuelReschke/insights/internal/pkg/cache"
	"github.com/ManuelReschke/insights/internal/pkg/config"
	"github.com/ManuelReschke/insights/internal/pkg/constants"
	"github.com/ManuelReschke/insights/internal/pkg/database"
	"github.com/ManuelReschke/insights/internal/pkg/env"
	"github.com/ManuelReschke/insights/internal/pkg/news"
	"github.com/ManuelReschke/insights/internal/pkg/router"
	"github.com/ManuelReschke/insights/internal/pkg/security"
	"github.com/ManuelReschke/insights/internal/pkg/storage"
)

const openAPIFile = "public/docs/v1/openapi.yml"

type application struct {
	app   *fiber.App
	cfg   *config.Config
	db    *gorm.DB
	cache *cache.SessionCache
}

func main() {
	a, err := newApplication(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := a.app.Listen(a.cfg.ListenAddr()); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := a.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	database.Close(a.db)
}

func newApplication(ctx context.Context) (*application, error) {
	if path := env.SetupEnvFile(); path != "" {
		log.Printf("Loaded environment from %s", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := database.SetupDatabase(cfg.Database, cfg.IsDev())
	if err != nil {
		return nil, err
	}
	repos := repository.NewFactory(db).GetRepositories()

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := security.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	authOpts := []auth.Option{auth.WithRedirect(cfg.LoginRedirect)}
	var sessions *cache.SessionCache
	if cfg.Cache.Enabled {
		sessions = cache.SetupCache(ctx, cfg.Cache)
		authOpts = append(authOpts, auth.WithSessionCache(sessions))
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: apperror.ErrorHandler(cfg.IsDev()),
		// multipart overhead on top of the image itself
		BodyLimit: int(cfg.MaxUploadBytes) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), requestid.New(), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}), cors.New())

	// SWAGGER / OPENAPI
	if _, err := os.Stat(openAPIFile); err == nil {
		if _, err := router.LoadOpenAPI(openAPIFile); err != nil {
			log.Printf("Not serving API docs: %v", err)
		} else {
			app.Use(swagger.New(swagger.Config{
				BasePath: constants.DocsBasePath,
				FilePath: openAPIFile,
				Path:     constants.DocsVersion,
			}))
		}
	}

	deps := router.Dependencies{
		Auth:          auth.NewService(repos.User, tokens, authOpts...),
		News:          news.NewService(repos.News, blobs, cfg.MaxUploadBytes),
		SingleSession: cfg.SingleSession,
		UploadsBase:   cfg.UploadsBaseURL(),
	}
	if local, ok := blobs.(*storage.LocalStore); ok {
		deps.UploadsDir = local.Dir()
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return &application{app: app, cfg: cfg, db: db, cache: sessions}, nil
}
