package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultMaxSide is the longest side, in pixels, sent to the detector.
	DefaultMaxSide = 1024
	// DefaultMaxLabels caps the number of labels requested per image.
	DefaultMaxLabels = 10
	// jpegQuality is used when encoding the image for the detector.
	jpegQuality = 85
	// catLabel is the label that counts as a detection.
	catLabel = "cat"
)

var (
	errDetectorRequired = errors.New("label detector is required")
	errImageRequired    = errors.New("image is required")
)

// Label is one classification returned by a detector.
type Label struct {
	// Name is the label text, e.g. "Cat".
	Name string
	// Confidence is the detector's certainty, in percent.
	Confidence float32
}

// LabelDetector classifies a JPEG-encoded image into labels.
// Implementations wrap a remote or local image classification service and
// should drop labels below minConfidence.
type LabelDetector interface {
	DetectLabels(ctx context.Context, jpegImage []byte, maxLabels int, minConfidence float32) ([]Label, error)
}

// LabelAnalyzer reports a cat when the detector returns a "cat" label with
// enough confidence.
type LabelAnalyzer struct {
	detector  LabelDetector
	maxSide   int
	maxLabels int
}

// LabelOption configures a LabelAnalyzer.
type LabelOption func(*LabelAnalyzer)

// WithMaxSide limits the image size sent to the detector. Non-positive values are ignored.
func WithMaxSide(px int) LabelOption {
	return func(a *LabelAnalyzer) {
		if px > 0 {
			a.maxSide = px
		}
	}
}

// WithMaxLabels limits how many labels the detector returns. Non-positive values are ignored.
func WithMaxLabels(n int) LabelOption {
	return func(a *LabelAnalyzer) {
		if n > 0 {
			a.maxLabels = n
		}
	}
}

// NewLabelAnalyzer creates an analyzer backed by detector.
func NewLabelAnalyzer(detector LabelDetector, opts ...LabelOption) (*LabelAnalyzer, error) {
	if detector == nil {
		return nil, errDetectorRequired
	}

	a := &LabelAnalyzer{
		detector:  detector,
		maxSide:   DefaultMaxSide,
		maxLabels: DefaultMaxLabels,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// ContainsCat downsizes img, sends it to the detector and looks for a cat label
// at or above confidenceThreshold.
func (a *LabelAnalyzer) ContainsCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error) {
	if img == nil {
		return false, errImageRequired
	}

	payload, err := a.encode(img)
	if err != nil {
		return false, err
	}

	labels, err := a.detector.DetectLabels(ctx, payload, a.maxLabels, confidenceThreshold)
	if err != nil {
		return false, fmt.Errorf("detect labels: %w", err)
	}

	for _, label := range labels {
		logger.DebugKV(ctx, "Image label detected", "label", label.Name, "confidence", label.Confidence)

		if strings.EqualFold(label.Name, catLabel) && label.Confidence >= confidenceThreshold {
			return true, nil
		}
	}

	return false, nil
}

// encode fits img into the configured bounds and encodes it as JPEG.
func (a *LabelAnalyzer) encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() > a.maxSide || bounds.Dy() > a.maxSide {
		img = imaging.Fit(img, a.maxSide, a.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}
