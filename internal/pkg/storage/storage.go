// Package storage holds uploaded news images. Objects are addressed by the
// generated filename that is stored in the news row.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/insights/internal/pkg/config"
)

var ErrInvalidName = errors.New("invalid object name")

// BlobStore is the contract the news service relies on. Delete must treat a
// missing object as success.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, name string) error
}

// New builds the store selected by BLOB_DRIVER.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.Blob.Driver {
	case config.BlobDriverS3:
		return NewS3Store(ctx, cfg.S3)
	case config.BlobDriverLocal, "":
		return NewLocalStore(cfg.Blob.Dir)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Blob.Driver)
	}
}

// GenerateFilename returns "<unix nanos>-<8 hex chars><ext>" where ext is the
// lower-cased extension of the client supplied filename.
func GenerateFilename(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(now.UnixNano(), 10) + "-" + suffix + ext
}

// validateName rejects anything that is not a plain file name.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
