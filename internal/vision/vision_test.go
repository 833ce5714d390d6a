package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestDetector = errors.New("test detector error")

// stubDetector returns fixed labels and remembers the request.
type stubDetector struct {
	labels        []Label
	err           error
	payload       []byte
	maxLabels     int
	minConfidence float32
}

func (d *stubDetector) DetectLabels(_ context.Context, payload []byte, maxLabels int, minConfidence float32) ([]Label, error) {
	d.payload = payload
	d.maxLabels = maxLabels
	d.minConfidence = minConfidence

	return d.labels, d.err
}

// TestFakeAnalyzer_ProducesBothAnswers verifies that a seeded fake returns both outcomes.
func TestFakeAnalyzer_ProducesBothAnswers(t *testing.T) {
	t.Parallel()

	a := NewFakeAnalyzer(rand.NewPCG(1, 2))
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	seen := make(map[bool]int)

	for range 100 {
		detected, err := a.ContainsCat(context.Background(), img, 50)
		require.NoError(t, err)

		seen[detected]++
	}

	require.Positive(t, seen[true])
	require.Positive(t, seen[false])
}

// TestFakeAnalyzer_Deterministic verifies that equal seeds give equal answers.
func TestFakeAnalyzer_Deterministic(t *testing.T) {
	t.Parallel()

	first := NewFakeAnalyzer(rand.NewPCG(7, 7))
	second := NewFakeAnalyzer(rand.NewPCG(7, 7))

	for range 20 {
		a, err := first.ContainsCat(context.Background(), nil, 0)
		require.NoError(t, err)

		b, err := second.ContainsCat(context.Background(), nil, 0)
		require.NoError(t, err)

		require.Equal(t, a, b)
	}
}

// TestFakeAnalyzer_CanceledContext verifies that a canceled context is reported.
func TestFakeAnalyzer_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFakeAnalyzer(nil).ContainsCat(ctx, nil, 0)
	require.ErrorIs(t, err, context.Canceled)
}

// TestLabelAnalyzer_ContainsCat covers label matching against the threshold.
func TestLabelAnalyzer_ContainsCat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		labels   []Label
		expected bool
	}{
		{name: "no labels"},
		{name: "other animal", labels: []Label{{Name: "Dog", Confidence: 99}}},
		{name: "cat below threshold", labels: []Label{{Name: "Cat", Confidence: 49.9}}},
		{name: "cat at threshold", labels: []Label{{Name: "Cat", Confidence: 50}}, expected: true},
		{
			name:     "cat among others",
			labels:   []Label{{Name: "Sofa", Confidence: 90}, {Name: "cat", Confidence: 80}},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detector := &stubDetector{labels: tt.labels}
			a, err := NewLabelAnalyzer(detector)
			require.NoError(t, err)

			detected, err := a.ContainsCat(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)), 50)
			require.NoError(t, err)
			require.Equal(t, tt.expected, detected)
			require.Equal(t, DefaultMaxLabels, detector.maxLabels)
			require.InDelta(t, 50, detector.minConfidence, 0)
		})
	}
}

// TestLabelAnalyzer_DownsizesImage verifies that large images are fitted before upload.
func TestLabelAnalyzer_DownsizesImage(t *testing.T) {
	t.Parallel()

	detector := new(stubDetector)
	a, err := NewLabelAnalyzer(detector, WithMaxSide(32), WithMaxLabels(3))
	require.NoError(t, err)

	_, err = a.ContainsCat(context.Background(), image.NewRGBA(image.Rect(0, 0, 128, 64)), 50)
	require.NoError(t, err)
	require.Equal(t, 3, detector.maxLabels)

	decoded, err := jpeg.Decode(bytes.NewReader(detector.payload))
	require.NoError(t, err)
	require.Equal(t, 32, decoded.Bounds().Dx())
	require.Equal(t, 16, decoded.Bounds().Dy())
}

// TestLabelAnalyzer_Errors covers constructor and detector failures.
func TestLabelAnalyzer_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewLabelAnalyzer(nil)
	require.Error(t, err)

	a, err := NewLabelAnalyzer(&stubDetector{err: errTestDetector})
	require.NoError(t, err)

	_, err = a.ContainsCat(context.Background(), nil, 50)
	require.Error(t, err)

	_, err = a.ContainsCat(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)), 50)
	require.ErrorIs(t, err, errTestDetector)
}
