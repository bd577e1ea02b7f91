package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes every event as a warning.
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a notifier that logs to logger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify logs event.
func (l *Log) Notify(_ context.Context, event Event) error {
	l.logger.Warn().
		Str("event_id", event.ID).
		Int("roi_id", event.ROIID).
		Float64("area", event.Area).
		Time("event_time", event.Timestamp).
		Msg("motion alert")
	return nil
}
