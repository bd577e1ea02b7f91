package notify

import (
	"context"
	"errors"
)

// Multi sends each event to every notifier in order, even when one fails.
type Multi []Notifier

// Notify returns the joined errors of the notifiers that failed.
func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
