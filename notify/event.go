// Package notify delivers motion alerts. Notifiers are composable: a
// Cooldown rate-limits whatever it wraps and Multi fans out to several
// destinations.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/roi-motion/images"
)

// Event describes confirmed motion in one ROI.
type Event struct {
	ID        string
	ROIID     int
	Rect      images.Rect
	Area      float64
	Timestamp time.Time
}

// NewEvent returns an Event with a fresh random id.
func NewEvent(roiID int, rect images.Rect, area float64, ts time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		ROIID:     roiID,
		Rect:      rect,
		Area:      area,
		Timestamp: ts,
	}
}

// Notifier receives motion events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}
