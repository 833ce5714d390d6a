package notify

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// EventKind tells which callback produced an Event.
type EventKind string

const (
	// KindAlarmStatus marks an alarm status change.
	KindAlarmStatus EventKind = "alarm_status"
	// KindCatDetection marks a scan result.
	KindCatDetection EventKind = "cat_detection"
)

// Event is one recorded notification.
type Event struct {
	Kind        EventKind
	At          time.Time
	AlarmStatus domain.AlarmStatus
	CatDetected bool
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	now    func() time.Time
	events []Event
}

// NewRecorder creates a recorder keeping at most limit events.
// A non-positive limit keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit, now: time.Now}
}

// OnAlarmStatusChanged records the alarm status change.
func (r *Recorder) OnAlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	r.append(Event{Kind: KindAlarmStatus, AlarmStatus: status})
}

// OnCatDetectionEvent records the scan result.
func (r *Recorder) OnCatDetectionEvent(_ context.Context, detected bool) {
	r.append(Event{Kind: KindCatDetection, CatDetected: detected})
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

// Reset forgets all events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.At = r.now()
	r.events = append(r.events, e)

	if r.limit > 0 && len(r.events) > r.limit {
		r.events = slices.Delete(r.events, 0, len(r.events)-r.limit)
	}
}
