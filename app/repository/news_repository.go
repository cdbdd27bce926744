package repository

import (
	"context"
	"strings"

	"github.com/ManuelReschke/insights/app/models"
	"gorm.io/gorm"
)

// newsRepository implements the NewsRepository interface
type newsRepository struct {
	db *gorm.DB
}

// NewNewsRepository creates a new news repository instance
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

// Create creates a new news item in the database
func (r *newsRepository) Create(ctx context.Context, news *models.News) error {
	return r.db.WithContext(ctx).Create(news).Error
}

// GetByID retrieves a news item by its ID
func (r *newsRepository) GetByID(ctx context.Context, id uint) (*models.News, error) {
	var news models.News
	err := r.db.WithContext(ctx).First(&news, id).Error
	if err != nil {
		return nil, err
	}
	return &news, nil
}

// Update writes every column of news, including a nil image. A row that
// no longer exists is reported as gorm.ErrRecordNotFound; MySQL connections
// use clientFoundRows so an unchanged row still counts as found.
func (r *newsRepository) Update(ctx context.Context, news *models.News) error {
	result := r.db.WithContext(ctx).Model(&models.News{}).Where("id = ?", news.ID).
		Select("name", "date", "title", "tag", "description", "image", "updated_at").
		Updates(news)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a news item by its ID
func (r *newsRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.News{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Search returns one page of news, newest first, together with the total
// number of rows matching the same filter.
func (r *newsRepository) Search(ctx context.Context, q NewsQuery) ([]models.News, int64, error) {
	filtered := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.News{})
		term := strings.TrimSpace(q.Search)
		if term == "" {
			return tx
		}
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		return tx.Where(
			"LOWER(name) LIKE ? ESCAPE '!' OR LOWER(title) LIKE ? ESCAPE '!' OR LOWER(tag) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'",
			like, like, like, like,
		)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	news := make([]models.News, 0)
	err := filtered().
		Order("date DESC").Order("id DESC").
		Offset(q.Offset).Limit(q.Limit).
		Find(&news).Error
	if err != nil {
		return nil, 0, err
	}
	return news, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
