package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/metrics"
	"github.com/hamed0406/tlscheck/internal/repo"
)

// BatchChecker is satisfied by *probe.Runner.
type BatchChecker interface {
	CheckMany(ctx context.Context, hosts []string) domain.BatchResult
}

// Watcher re-checks every watched host on a fixed interval.
type Watcher struct {
	Logger   *zap.Logger
	Targets  repo.TargetStore
	Results  repo.ResultStore
	Runner   BatchChecker
	Metrics  *metrics.Engine
	Interval time.Duration
}

func NewWatcher(
	logger *zap.Logger,
	ts repo.TargetStore,
	rs repo.ResultStore,
	runner BatchChecker,
	m *metrics.Engine,
	interval time.Duration,
) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	return &Watcher{
		Logger:   logger,
		Targets:  ts,
		Results:  rs,
		Runner:   runner,
		Metrics:  m,
		Interval: interval,
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.Interval == 0 {
		// disabled
		w.Logger.Info("watcher_disabled")
		return
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	// immediate pass
	_, _ = w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watcher_stopped")
			return
		case <-t.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce checks all watched hosts and stores the outcomes.
func (w *Watcher) RunOnce(ctx context.Context) (domain.BatchResult, error) {
	ts, err := w.Targets.List(ctx)
	if err != nil {
		w.Logger.Warn("watch_list_error", zap.Error(err))
		return nil, err
	}
	hosts := make([]string, len(ts))
	for i, t := range ts {
		hosts[i] = t.Host
	}

	start := time.Now()
	out := w.Runner.CheckMany(ctx, hosts)
	failed := 0
	for _, o := range out {
		w.Metrics.SetDaysUntilExpiry(o)
		if !o.Succeeded() || !o.Result.Healthy() {
			failed++
		}
		if err := w.Results.Append(ctx, o); err != nil {
			w.Logger.Warn("watch_append_error", zap.String("host", o.Hostname()), zap.Error(err))
			continue
		}
		w.Logger.Debug("watch_checked",
			zap.String("host", o.Hostname()),
			zap.String("status", o.Status()),
		)
	}
	w.Logger.Info("watch_pass",
		zap.Int("hosts", len(hosts)),
		zap.Int("unhealthy", failed),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}
