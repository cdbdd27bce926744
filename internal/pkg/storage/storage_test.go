package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/insights/internal/pkg/config"
)

func TestGenerateFilename(t *testing.T) {
	now := time.Unix(1700000000, 123456789)

	name := GenerateFilename("Photo.PNG", now)
	assert.Regexp(t, regexp.MustCompile(`^1700000000123456789-[0-9a-f]{8}\.png$`), name)

	other := GenerateFilename("Photo.PNG", now)
	assert.NotEqual(t, name, other, "same timestamp must still produce distinct names")

	assert.Regexp(t, regexp.MustCompile(`^1700000000123456789-[0-9a-f]{8}$`), GenerateFilename("noext", now))
}

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")

	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)

	require.NoError(t, store.Save(ctx, "a.png", strings.NewReader("png-bytes"), 9, "image/png"))

	data, err := os.ReadFile(store.Path("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, "a.png"))
	assert.NoFileExists(t, store.Path("a.png"))

	// deleting again is a no-op
	require.NoError(t, store.Delete(ctx, "a.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files may be left behind")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestLocalStoreSaveFailureLeavesNothing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), "b.png", failingReader{}, 0, "image/png")
	require.Error(t, err)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../etc/passwd", "a/b.png", `a\b.png`} {
		assert.ErrorIs(t, store.Delete(context.Background(), name), ErrInvalidName, name)
	}
}

func TestNewSelectsLocalDriver(t *testing.T) {
	cfg := &config.Config{Blob: config.Blob{Driver: config.BlobDriverLocal, Dir: t.TempDir()}}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	cfg.Blob.Driver = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(&types.NotFound{}))
	assert.True(t, isS3NotFound(&types.NoSuchKey{}))
	assert.True(t, isS3NotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.False(t, isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isS3NotFound(errors.New("timeout")))
}

func TestS3Key(t *testing.T) {
	s := &S3Store{prefix: "uploads/"}
	assert.Equal(t, "uploads/a.png", s.key("a.png"))

	s.prefix = ""
	assert.Equal(t, "a.png", s.key("a.png"))
}
