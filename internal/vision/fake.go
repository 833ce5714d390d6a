package vision

import (
	"context"
	"image"
	"math/rand/v2"
	"sync"
)

// FakeAnalyzer answers at random. It stands in for a real classifier
// during development and demos.
type FakeAnalyzer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFakeAnalyzer creates a fake analyzer drawing from src.
// A nil src uses a randomly seeded source.
func NewFakeAnalyzer(src rand.Source) *FakeAnalyzer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &FakeAnalyzer{rnd: rand.New(src)} //nolint:gosec // Not used for security.
}

// ContainsCat ignores the image and the threshold and flips a coin.
func (a *FakeAnalyzer) ContainsCat(ctx context.Context, _ image.Image, _ float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.rnd.IntN(2) == 0, nil
}
