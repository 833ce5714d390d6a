package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oshokin/catpoint/internal/logger"
)

const (
	// DefaultMinScanInterval is the minimum time between two analyzed snapshots.
	DefaultMinScanInterval = time.Second
	// DefaultSettleDelay is how long a file must stay unchanged before it is read.
	DefaultSettleDelay = 250 * time.Millisecond
)

var (
	errInboxRequired     = errors.New("camera inbox is required")
	errProcessorRequired = errors.New("image processor is required")
)

// Processor consumes decoded snapshots.
type Processor interface {
	ProcessImage(ctx context.Context, img image.Image) error
}

// Watcher monitors an inbox directory and passes new snapshots to a Processor.
// Snapshots arriving faster than the minimum scan interval are skipped.
type Watcher struct {
	inbox       string
	processor   Processor
	limiter     *rate.Limiter
	maxSide     int
	settleDelay time.Duration

	// debounce state
	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithMinScanInterval sets the minimum time between two processed snapshots.
// Zero disables throttling.
func WithMinScanInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)

			return
		}

		w.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMaxSide sets the size snapshots are fitted into before processing.
func WithMaxSide(px int) Option {
	return func(w *Watcher) {
		w.maxSide = px
	}
}

// WithSettleDelay sets how long a file must be quiet before it is read.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settleDelay = d
		}
	}
}

// NewWatcher creates a watcher for inbox. The directory is created when missing.
func NewWatcher(inbox string, processor Processor, opts ...Option) (*Watcher, error) {
	if inbox == "" {
		return nil, errInboxRequired
	}

	if processor == nil {
		return nil, errProcessorRequired
	}

	w := &Watcher{
		inbox:       inbox,
		processor:   processor,
		limiter:     rate.NewLimiter(rate.Every(DefaultMinScanInterval), 1),
		maxSide:     DefaultMaxSide,
		settleDelay: DefaultSettleDelay,
		pending:     make(map[string]*time.Timer),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Run watches the inbox until ctx is done. It waits for in-flight snapshots
// before returning.
func (w *Watcher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "camera")

	if err := os.MkdirAll(w.inbox, 0o750); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}

	defer func() {
		w.stopTimers()
		w.wg.Wait()

		if closeErr := fsw.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close camera inbox watcher", "error", closeErr)
		}
	}()

	if err = fsw.Add(w.inbox); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.inbox, err)
	}

	logger.Infof(ctx, "Camera inbox watcher started on %s", w.inbox)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Camera inbox watcher stopped")

			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ctx, event)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Camera inbox watcher error", "error", watchErr)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if !IsImageFile(event.Name) {
		return
	}

	w.schedule(ctx, event.Name)
}

// schedule debounces events per file so partially written snapshots are not read.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok && timer.Stop() {
		w.wg.Done()
	}

	var timer *time.Timer

	w.wg.Add(1)
	timer = time.AfterFunc(w.settleDelay, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		w.scan(ctx, path)
	})
	w.pending[path] = timer
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}

		delete(w.pending, path)
	}
}

func (w *Watcher) scan(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	ctx = logger.WithFields(ctx, zap.String("path", path))

	if !w.limiter.Allow() {
		logger.Debug(ctx, "Snapshot skipped by scan throttle")

		return
	}

	img, err := LoadImage(path, w.maxSide)
	if err != nil {
		logger.WarnKV(ctx, "Failed to load snapshot", "error", err)

		return
	}

	if err = w.processor.ProcessImage(ctx, img); err != nil {
		logger.ErrorKV(ctx, "Failed to process snapshot", "error", err)

		return
	}

	logger.Debug(ctx, "Snapshot processed")
}
