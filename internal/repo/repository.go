package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/tlscheck/internal/domain"
)

var ErrDuplicate = errors.New("target already watched")

// Ports (interfaces) for the watcher's state.
type TargetStore interface {
	// Add returns ErrDuplicate when the host is already watched.
	Add(ctx context.Context, t domain.WatchTarget) error
	List(ctx context.Context) ([]domain.WatchTarget, error)
}

type ResultStore interface {
	Append(ctx context.Context, o domain.Outcome) error
	// Latest returns the most recent outcome per host, ordered by host.
	Latest(ctx context.Context) ([]domain.Outcome, error)
}
