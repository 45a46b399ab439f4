package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Alert is one health transition for a watched host.
type Alert struct {
	Host    string
	Title   string
	Text    string
	Healthy bool
}

type Notifier interface {
	Send(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, a Alert) error {
	var err error
	for i, n := range m {
		if n == nil {
			continue
		}
		if e := n.Send(ctx, a); e != nil {
			err = multierr.Append(err, fmt.Errorf("notifier %d: %w", i, e))
		}
	}
	return err
}
