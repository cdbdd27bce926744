package news

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/insights/app/models"
	"github.com/ManuelReschke/insights/app/repository"
	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/storage"
	"github.com/ManuelReschke/insights/internal/pkg/upload"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Page is one slice of the news listing.
type Page struct {
	Items      []models.News
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// Service owns the news lifecycle: validation, image storage and rows.
// File and row writes are not atomic; every step that can fail after a
// file was written removes that file again.
type Service struct {
	repo           repository.NewsRepository
	blobs          storage.BlobStore
	maxUploadBytes int64
	validate       *validator.Validate
	now            func() time.Time
}

func NewService(repo repository.NewsRepository, blobs storage.BlobStore, maxUploadBytes int64) *Service {
	return &Service{
		repo:           repo,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
		validate:       newValidator(),
		now:            time.Now,
	}
}

// Create validates in, stores the image and inserts the row. The image is
// mandatory.
func (s *Service) Create(ctx context.Context, in Input, file *multipart.FileHeader) (*models.News, error) {
	contentType, err := s.checkUpload(file)
	if err != nil {
		return nil, err
	}

	p, errs := s.validateInput(in)
	if file == nil {
		errs["image"] = "Image is required"
	}
	if len(errs) > 0 {
		return nil, apperror.Validation("Validation failed", errs)
	}

	name, err := s.storeImage(ctx, file, contentType)
	if err != nil {
		return nil, err
	}

	item := &models.News{Image: &name}
	if err := fill(item, p, in.Description); err != nil {
		s.discard(ctx, name)
		return nil, apperror.Internal("Server error", err)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.discard(ctx, name)
		return nil, apperror.Internal("Server error", fmt.Errorf("insert news: %w", err))
	}

	log.Infof("[NewsService] Created news %d with image %s", item.ID, name)
	return item, nil
}

// Get returns a single news item.
func (s *Service) Get(ctx context.Context, id uint) (*models.News, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("News not found")
		}
		return nil, apperror.Internal("Server error", fmt.Errorf("load news %d: %w", id, err))
	}
	return item, nil
}

// List returns one page of news, newest first. Non-positive page or limit
// fall back to the defaults; limit has no upper bound.
func (s *Service) List(ctx context.Context, page, limit int, search string) (*Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	q := repository.NewsQuery{Search: search, Limit: limit}
	beyondEnd := page-1 > math.MaxInt/limit
	if !beyondEnd {
		q.Offset = (page - 1) * limit
	} else {
		// no row can live past the largest offset; only count
		q.Limit = 0
	}

	items, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, apperror.Internal("Server error", fmt.Errorf("list news: %w", err))
	}
	if beyondEnd {
		items = []models.News{}
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func totalPages(total int64, limit int) int {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return int(pages)
}

// Update replaces every field of an existing item. Without a new file the
// current image is kept; with one, the previous image is removed once the
// row points at the new file.
func (s *Service) Update(ctx context.Context, id uint, in Input, file *multipart.FileHeader) (*models.News, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	contentType, err := s.checkUpload(file)
	if err != nil {
		return nil, err
	}

	p, errs := s.validateInput(in)
	if len(errs) > 0 {
		return nil, apperror.Validation("Validation failed", errs)
	}

	previous := item.ImageName()
	if err := fill(item, p, in.Description); err != nil {
		return nil, apperror.Internal("Server error", err)
	}

	var replacement string
	if file != nil {
		replacement, err = s.storeImage(ctx, file, contentType)
		if err != nil {
			return nil, err
		}
		item.Image = &replacement
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if replacement != "" {
			s.discard(ctx, replacement)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("News not found")
		}
		return nil, apperror.Internal("Server error", fmt.Errorf("update news %d: %w", id, err))
	}

	if replacement != "" && previous != "" && previous != replacement {
		s.discard(ctx, previous)
	}

	log.Infof("[NewsService] Updated news %d", item.ID)
	return item, nil
}

// Delete removes the row first and the image second, so a failure can only
// ever leave an unreferenced file behind, never a row without its file.
func (s *Service) Delete(ctx context.Context, id uint) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("News not found")
		}
		return apperror.Internal("Server error", fmt.Errorf("delete news %d: %w", id, err))
	}

	if name := item.ImageName(); name != "" {
		s.discard(ctx, name)
	}

	log.Infof("[NewsService] Deleted news %d", id)
	return nil
}

func (s *Service) checkUpload(file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", nil
	}
	contentType, err := upload.ValidateImage(file, s.maxUploadBytes)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			return "", apperror.Upload("File too large", err)
		case errors.Is(err, upload.ErrUnsupportedType):
			return "", apperror.Upload(upload.ErrUnsupportedType.Error(), err)
		case errors.Is(err, upload.ErrCorruptImage):
			return "", apperror.Upload(upload.ErrCorruptImage.Error(), err)
		default:
			return "", apperror.Upload("Could not read uploaded file", err)
		}
	}
	return contentType, nil
}

func (s *Service) storeImage(ctx context.Context, file *multipart.FileHeader, contentType string) (string, error) {
	name := storage.GenerateFilename(upload.Filename(file.Filename, contentType), s.now())

	f, err := file.Open()
	if err != nil {
		return "", apperror.Upload("Could not read uploaded file", err)
	}
	defer f.Close()

	if err := s.blobs.Save(ctx, name, f, file.Size, contentType); err != nil {
		return "", apperror.Internal("Server error", fmt.Errorf("store image: %w", err))
	}
	return name, nil
}

// discard deletes an image the caller no longer needs. Failures are logged
// with the object name so it can be cleaned up by hand.
func (s *Service) discard(ctx context.Context, name string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), name); err != nil {
		log.Errorf("[NewsService] Orphaned image %s could not be deleted: %v", name, err)
	}
}

func fill(item *models.News, p payload, description string) error {
	date, _ := ParseDate(p.Date)
	item.Name = p.Name
	item.Date = datatypes.Date(date)
	item.Title = p.Title
	item.Description = description
	return item.SetTags(p.Tags)
}
