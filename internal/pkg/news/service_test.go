package news

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"math"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/insights/app/models"
	"github.com/ManuelReschke/insights/app/repository"
	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/database/databasetest"
	"github.com/ManuelReschke/insights/internal/pkg/storage"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(2, 2, color.NRGBA{G: 255, A: 255})))
	return buf.Bytes()
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	t.Cleanup(func() { _ = req.MultipartForm.RemoveAll() })
	return req.MultipartForm.File["image"][0]
}

// failingRepo lets the embedded repository read but fails writes on demand.
type failingRepo struct {
	repository.NewsRepository
	createErr    error
	updateErr    error
	beforeUpdate func()
}

func (r *failingRepo) Create(ctx context.Context, n *models.News) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.NewsRepository.Create(ctx, n)
}

func (r *failingRepo) Update(ctx context.Context, n *models.News) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	return r.NewsRepository.Update(ctx, n)
}

type fixture struct {
	svc   *Service
	repo  *failingRepo
	store *storage.LocalStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repo := &failingRepo{NewsRepository: repository.NewNewsRepository(databasetest.OpenTestDB(t))}
	return &fixture{svc: NewService(repo, store, 5<<20), repo: repo, store: store}
}

func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.store.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func validInput() Input {
	return Input{
		Name:        "Q1",
		Date:        "2024-03-01",
		Title:       "Results",
		Tag:         []string{"finance", "quarterly"},
		Description: "<p>Up 5%</p>",
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validInput(), fileHeader(t, "chart.PNG", "image/png", pngBytes(t)))
	require.NoError(t, err)
	require.NotZero(t, item.ID)

	assert.Equal(t, "Q1", item.Name)
	assert.Equal(t, "2024-03-01", item.DateString())
	assert.Equal(t, []string{"finance", "quarterly"}, item.Tags())
	assert.Equal(t, "<p>Up 5%</p>", item.Description)
	assert.Regexp(t, `^\d+-[0-9a-f]{8}\.png$`, item.ImageName())

	assert.FileExists(t, f.store.Path(item.ImageName()))

	stored, err := f.svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ImageName(), stored.ImageName())
}

func TestCreateReportsEveryMissingField(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), Input{Description: "<p> </p>"}, nil)
	require.Error(t, err)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, map[string]string{
		"name":        "Name is required",
		"date":        "Date is required",
		"title":       "Title is required",
		"tag":         "At least one tag is required",
		"description": "Description is required",
		"image":       "Image is required",
	}, appErr.Fields)
}

func TestCreateValidationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Date = "yesterday"

	_, err := f.svc.Create(context.Background(), in, fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrValidation)

	appErr, _ := apperror.As(err)
	assert.Equal(t, map[string]string{"date": "Date must be a valid date (YYYY-MM-DD)"}, appErr.Fields)
	assert.Empty(t, f.files(t))
}

func TestCreateRejectsNonImages(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), validInput(), fileHeader(t, "notes.txt", "text/plain", []byte("hello")))
	require.ErrorIs(t, err, apperror.ErrUpload)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "Invalid file type. Only images are allowed.", appErr.Message)

	_, err = f.svc.Create(context.Background(), validInput(), fileHeader(t, "fake.png", "image/png", []byte("\x89PNG\r\n\x1a\nbroken")))
	require.ErrorIs(t, err, apperror.ErrUpload)
	assert.Empty(t, f.files(t))
}

func TestCreateRejectsOversizedUpload(t *testing.T) {
	f := newFixture(t)
	f.svc.maxUploadBytes = 10

	_, err := f.svc.Create(context.Background(), validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrUpload)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "File too large", appErr.Message)
}

func TestCreateRemovesImageWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrInternal)
	assert.Empty(t, f.files(t))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, date := range []string{"2024-01-01", "2024-01-03", "2024-01-02"} {
		in := validInput()
		in.Date = date
		in.Name = []string{"first", "third", "second"}[i]
		_, err := f.svc.Create(ctx, in, fileHeader(t, "a.png", "image/png", pngBytes(t)))
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Name)
	assert.Equal(t, "second", page.Items[1].Name)

	page, err = f.svc.List(ctx, 0, -5, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, page.Page)
	assert.Equal(t, DefaultLimit, page.Limit)
	assert.Equal(t, 1, page.TotalPages)

	page, err = f.svc.List(ctx, 1, 10, "SECOND")
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.List(ctx, 9, 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestListHugePageAndLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, 1, math.MaxInt, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, math.MaxInt, page.Limit)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 3)

	page, err = f.svc.List(ctx, 2, math.MaxInt, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)

	page, err = f.svc.List(ctx, math.MaxInt, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	page, err = f.svc.List(ctx, math.MaxInt, math.MaxInt, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 1, totalPages(3, math.MaxInt))
	assert.Equal(t, 1, totalPages(math.MaxInt64, math.MaxInt))
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t)

	page, err := f.svc.List(context.Background(), 1, 10, "")
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, page.TotalPages)
	assert.NotNil(t, page.Items)
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, apperror.ErrNotFound)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "News not found", appErr.Message)
}

func TestUpdateKeepsImageWithoutFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)

	in := validInput()
	in.Title = "Revised"
	in.Tag = []string{"a, b"}
	updated, err := f.svc.Update(ctx, created.ID, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "Revised", updated.Title)
	assert.Equal(t, []string{"a", "b"}, updated.Tags())
	assert.Equal(t, created.ImageName(), updated.ImageName())
	assert.Equal(t, []string{created.ImageName()}, f.files(t))
}

func TestUpdateReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)
	old := created.ImageName()

	f.svc.now = func() time.Time { return time.Now().Add(time.Minute) }
	updated, err := f.svc.Update(ctx, created.ID, validInput(), fileHeader(t, "b.png", "image/png", pngBytes(t)))
	require.NoError(t, err)
	assert.NotEqual(t, old, updated.ImageName())
	assert.Equal(t, []string{updated.ImageName()}, f.files(t))

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.ImageName(), stored.ImageName())
}

func TestUpdateFailureKeepsOldImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)

	f.repo.updateErr = errors.New("db down")
	_, err = f.svc.Update(ctx, created.ID, validInput(), fileHeader(t, "b.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrInternal)
	assert.Equal(t, []string{created.ImageName()}, f.files(t))
}

func TestUpdateRowDeletedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)

	f.repo.beforeUpdate = func() {
		require.NoError(t, f.repo.NewsRepository.Delete(ctx, created.ID))
	}
	f.svc.now = func() time.Time { return time.Now().Add(time.Minute) }

	_, err = f.svc.Update(ctx, created.ID, validInput(), fileHeader(t, "b.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrNotFound)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "News not found", appErr.Message)

	// only the untouched original remains; the replacement was discarded
	assert.Equal(t, []string{created.ImageName()}, f.files(t))
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, 99, validInput(), nil)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)

	in := validInput()
	in.Name = "  "
	in.Tag = []string{" , "}
	_, err = f.svc.Update(ctx, created.ID, in, fileHeader(t, "b.png", "image/png", pngBytes(t)))
	require.ErrorIs(t, err, apperror.ErrValidation)
	appErr, _ := apperror.As(err)
	assert.Len(t, appErr.Fields, 2)
	assert.Equal(t, []string{created.ImageName()}, f.files(t))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	assert.Empty(t, f.files(t))

	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), apperror.ErrNotFound)
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, validInput(), fileHeader(t, "a.png", "image/png", pngBytes(t)))
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.store.Path(created.ImageName())))

	require.NoError(t, f.svc.Delete(ctx, created.ID))
}
