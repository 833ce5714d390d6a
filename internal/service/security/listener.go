package security

import (
	"context"
	"slices"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
)

// StatusListener receives controller notifications.
// Callbacks run synchronously on the caller's goroutine, in registration order,
// after the triggering operation has committed its state. Notifications reach
// listeners in the order their operations committed, so a slow callback holds
// back later operations until it returns. Listeners may read the controller
// from a callback but must not change it synchronously; start a goroutine for
// that.
//
// Listeners are compared with == for registration and removal, so use pointer
// receivers or other comparable types.
type StatusListener interface {
	// OnAlarmStatusChanged is called whenever the alarm status actually changes.
	OnAlarmStatusChanged(ctx context.Context, status domain.AlarmStatus)
	// OnCatDetectionEvent is called after every successful image scan.
	OnCatDetectionEvent(ctx context.Context, detected bool)
}

// notification is a pending callback collected while the lock is held.
type notification func(ctx context.Context, l StatusListener)

func alarmChanged(status domain.AlarmStatus) notification {
	return func(ctx context.Context, l StatusListener) {
		l.OnAlarmStatusChanged(ctx, status)
	}
}

func catDetection(detected bool) notification {
	return func(ctx context.Context, l StatusListener) {
		l.OnCatDetectionEvent(ctx, detected)
	}
}

// AddStatusListener registers l. Registering the same listener twice has no effect.
func (c *Controller) AddStatusListener(l StatusListener) {
	if l == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.listeners, l) {
		return
	}

	c.listeners = append(c.listeners, l)
}

// RemoveStatusListener unregisters l. Removing an unknown listener is a no-op.
func (c *Controller) RemoveStatusListener(l StatusListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = slices.DeleteFunc(c.listeners, func(registered StatusListener) bool {
		return registered == l
	})
}

// dispatch delivers notifications to a listener snapshot taken under the lock.
func dispatch(ctx context.Context, listeners []StatusListener, notifications []notification) {
	for _, n := range notifications {
		for _, l := range listeners {
			n(ctx, l)
		}
	}
}
