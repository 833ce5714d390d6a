package security

import (
	"context"
	"fmt"
	"slices"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/logger"
)

// change is the outcome of one operation. It is applied all-or-nothing:
// sensors and state are persisted first and only then copied into memory.
type change struct {
	// sensors are records to write through the sensor store.
	sensors []domain.Sensor
	// state is the new controller state; nil keeps the current one.
	state *domain.State
	// catEvent is set when listeners must hear about a scan result.
	catEvent *bool
	// rule names the decision table row behind an alarm status change.
	rule string
}

// mutate runs plan under the controller lock, commits its change and
// notifies listeners after the lock is released. Deliveries are ticketed
// under the lock so listeners observe changes in commit order.
// A nil change with a nil error means the request was ignored.
func (c *Controller) mutate(ctx context.Context, plan func() (*change, error)) error {
	c.mu.Lock()

	ch, err := plan()
	if err != nil || ch == nil {
		c.mu.Unlock()

		return err
	}

	previous := c.state.AlarmStatus

	if err = c.commit(ctx, ch); err != nil {
		c.mu.Unlock()

		return err
	}

	var notifications []notification

	if current := c.state.AlarmStatus; current != previous {
		logger.InfoKV(ctx, "Alarm status changed",
			"from", previous,
			"to", current,
			"arming_status", c.state.ArmingStatus,
			"rule", ch.rule,
		)

		notifications = append(notifications, alarmChanged(current))
	}

	if ch.catEvent != nil {
		notifications = append(notifications, catDetection(*ch.catEvent))
	}

	if len(notifications) == 0 {
		c.mu.Unlock()

		return nil
	}

	listeners := slices.Clone(c.listeners)
	ticket := c.issued
	c.issued++

	c.mu.Unlock()

	c.deliver(ctx, ticket, listeners, notifications)

	return nil
}

// deliver waits until every earlier ticket has been dispatched, then
// dispatches its own notifications.
func (c *Controller) deliver(ctx context.Context, ticket uint64, listeners []StatusListener, notifications []notification) {
	c.dispatchMu.Lock()
	for c.delivered != ticket {
		c.dispatchCond.Wait()
	}
	c.dispatchMu.Unlock()

	defer func() {
		c.dispatchMu.Lock()
		c.delivered++
		c.dispatchCond.Broadcast()
		c.dispatchMu.Unlock()
	}()

	dispatch(ctx, listeners, notifications)
}

// commit persists the change and applies it to memory. On failure every
// sensor already written is restored and memory is left untouched.
func (c *Controller) commit(ctx context.Context, ch *change) error {
	written := make([]domain.Sensor, 0, len(ch.sensors))

	for _, s := range ch.sensors {
		if err := c.store.Update(ctx, s); err != nil {
			c.rollback(ctx, written)

			return fmt.Errorf("update sensor %s: %w", s.Key(), err)
		}

		written = append(written, s)
	}

	if ch.state != nil {
		ch.state.Timestamp = c.now()

		if c.stateRepo != nil {
			if err := c.stateRepo.Save(ctx, ch.state); err != nil {
				c.rollback(ctx, written)

				return fmt.Errorf("persist state: %w", err)
			}
		}
	}

	for _, s := range ch.sensors {
		c.registry[s.Key()] = s
	}

	if ch.state != nil {
		c.state = ch.state
	}

	return nil
}

// rollback writes the in-memory version of each sensor back to the store.
// Failures are logged; the original error is what the caller sees.
func (c *Controller) rollback(ctx context.Context, written []domain.Sensor) {
	for _, s := range written {
		previous := c.registry[s.Key()]
		if err := c.store.Update(ctx, previous); err != nil {
			logger.ErrorKV(ctx, "Failed to restore sensor after aborted change",
				"sensor", s.Key().String(),
				"error", err,
			)
		}
	}
}
