package notify

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/alarm"
	"github.com/oshokin/catpoint/internal/logger"
)

// LogListener writes every controller notification to the context logger.
type LogListener struct{}

// NewLogListener creates a LogListener.
func NewLogListener() *LogListener {
	return new(LogListener)
}

// OnAlarmStatusChanged logs the new alarm status. A sounding alarm is logged as a warning.
func (*LogListener) OnAlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	if status == domain.Alarm {
		logger.WarnKV(ctx, status.Description(), "alarm_status", status)

		return
	}

	logger.InfoKV(ctx, status.Description(), "alarm_status", status)
}

// OnCatDetectionEvent logs the scan result.
func (*LogListener) OnCatDetectionEvent(ctx context.Context, detected bool) {
	message := "No cats detected"
	if detected {
		message = "DANGER - CAT DETECTED"
	}

	logger.InfoKV(ctx, message, "cat_detected", detected)
}
