package perception

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"timefold/internal/types"
)

// ErrUnsupportedImage is returned for anything that is not a JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image format (JPEG or PNG required)")

// MaxImageBytes caps inline image uploads.
const MaxImageBytes = 20 << 20

// ImageExtensions lists the file extensions offered by the image picker.
var ImageExtensions = []string{".jpg", ".jpeg", ".png"}

// LoadImage reads an image file for use as visual context. The bytes are
// not decoded; the MIME type is sniffed from content.
func LoadImage(path string) (*types.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("image %s is %d bytes, limit is %d", filepath.Base(path), info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return NewImage(filepath.Base(path), data)
}

// NewImage wraps raw bytes, rejecting formats the backend is not given.
func NewImage(name string, data []byte) (*types.Image, error) {
	mime := http.DetectContentType(data)
	switch mime {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedImage, name, mime)
	}
	return &types.Image{Name: name, MIMEType: mime, Data: data}, nil
}
