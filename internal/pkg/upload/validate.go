package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	ErrUnsupportedType = errors.New("Invalid file type. Only images are allowed.")
	ErrTooLarge        = errors.New("File too large")
	ErrCorruptImage    = errors.New("Uploaded file is not a valid image")
)

var allowedMime = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// sniffLen is what http.DetectContentType looks at.
const sniffLen = 512

// extensions lists the file extensions stored for each detected type, the
// first one being the canonical choice.
var extensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
}

// ValidateImageBySniff checks the client declared MIME type and the first
// bytes against the jpeg/png whitelist. The filename plays no part. Returns
// the detected MIME type.
func ValidateImageBySniff(declared string, head []byte) (string, error) {
	if declared != "" {
		mediaType := strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
		if !allowedMime[mediaType] {
			return "", ErrUnsupportedType
		}
	}

	detected := http.DetectContentType(head)
	if !allowedMime[detected] {
		return "", ErrUnsupportedType
	}
	return detected, nil
}

// ValidateImage runs every upload check against a multipart file: size
// limit, type whitelist and a full decode. The returned MIME type is the
// sniffed one, not the one the client claimed.
func ValidateImage(fh *multipart.FileHeader, maxBytes int64) (string, error) {
	if fh == nil {
		return "", errors.New("no file")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the limit of %d bytes", ErrTooLarge, fh.Size, maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}

	detected, err := ValidateImageBySniff(fh.Header.Get("Content-Type"), head[:n])
	if err != nil {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	if _, err := imaging.Decode(f); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	return detected, nil
}

// Filename returns original with an extension that matches the detected
// type. A fitting extension is kept as sent; a missing or foreign one is
// replaced, so "photo.dat" holding a JPEG becomes "photo.jpg".
func Filename(original, detected string) string {
	exts, ok := extensions[detected]
	if !ok {
		return original
	}
	ext := filepath.Ext(original)
	if slices.Contains(exts, strings.ToLower(ext)) {
		return original
	}
	return strings.TrimSuffix(original, ext) + exts[0]
}
