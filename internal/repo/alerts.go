package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last health state seen for a host and the last
// time a notification went out for it (used for cooldown).
type AlertRecord struct {
	Host        string
	LastHealthy bool
	LastSentAt  *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, host string) (*AlertRecord, error)
	// Set upserts the record. A zero sentAt keeps the previous send time.
	Set(ctx context.Context, host string, healthy bool, sentAt time.Time) error
}
