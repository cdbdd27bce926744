package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/ManuelReschke/insights/app/models"
	"github.com/ManuelReschke/insights/app/repository"
	"github.com/ManuelReschke/insights/internal/pkg/config"
	"github.com/ManuelReschke/insights/internal/pkg/database"
	"github.com/ManuelReschke/insights/internal/pkg/env"
)

// usercreate creates an editor account, or resets the password of an
// existing one. There is no registration endpoint.
func main() {
	email := flag.String("email", "", "email address of the user")
	password := flag.String("password", "", "new password")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Println("Usage: go run ./cmd/usercreate -email user@example.com -password secret")
		os.Exit(1)
	}

	env.SetupEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.SetupDatabase(cfg.Database, false)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	users := repository.NewFactory(db).GetUserRepository()
	created, err := upsertUser(context.Background(), users, *email, *password)
	if err != nil {
		log.Fatal(err)
	}
	if created {
		log.Printf("Created user %s", *email)
	} else {
		log.Printf("Reset password for %s", *email)
	}
}

func upsertUser(ctx context.Context, users repository.UserRepository, email, password string) (bool, error) {
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		hash, err := models.HashPassword(password)
		if err != nil {
			return false, err
		}
		return false, users.UpdatePassword(ctx, existing.ID, hash)
	case errors.Is(err, gorm.ErrRecordNotFound):
		u, err := models.NewUser(email, password)
		if err != nil {
			return false, fmt.Errorf("invalid user: %w", err)
		}
		return true, users.Create(ctx, u)
	default:
		return false, err
	}
}
