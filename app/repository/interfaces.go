package repository

import (
	"context"

	"github.com/ManuelReschke/insights/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateToken(ctx context.Context, id uint, token string) error
}

// NewsRepository defines the interface for news-related operations
type NewsRepository interface {
	Create(ctx context.Context, news *models.News) error
	GetByID(ctx context.Context, id uint) (*models.News, error)
	Update(ctx context.Context, news *models.News) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, q NewsQuery) ([]models.News, int64, error)
}

// NewsQuery selects one page of news, optionally filtered by a search term.
type NewsQuery struct {
	Search string
	Offset int
	Limit  int
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
	News NewsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		News: NewNewsRepository(db),
	}
}
