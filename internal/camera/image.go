package camera

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Registers the WebP decoder used by imaging.Open.
	_ "golang.org/x/image/webp"
)

// DefaultMaxSide is the longest side, in pixels, of images passed on for analysis.
const DefaultMaxSide = 1200

// LoadImage decodes the image at path, applies EXIF orientation and fits it
// into maxSide x maxSide. A non-positive maxSide keeps the original size.
func LoadImage(path string, maxSide int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	bounds := img.Bounds()
	if maxSide > 0 && (bounds.Dx() > maxSide || bounds.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	return img, nil
}

// IsImageFile reports whether the file name has an extension the watcher processes.
func IsImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	default:
		return false
	}
}
