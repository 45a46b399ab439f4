package probe

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/metrics"
)

// Runner checks many hosts with at most Concurrency checks in flight.
type Runner struct {
	Checker     Checker
	Concurrency int
	// Limiter, when set, paces check starts across the batch.
	Limiter *rate.Limiter
	Logger  *zap.Logger
	Metrics *metrics.Engine
}

func NewRunner(chk Checker, opts Options, log *zap.Logger, m *metrics.Engine) *Runner {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		Checker:     chk,
		Concurrency: opts.Concurrency,
		Logger:      log,
		Metrics:     m,
	}
	if opts.DialRate > 0 {
		burst := int(opts.DialRate)
		if burst < 1 {
			burst = 1
		}
		r.Limiter = rate.NewLimiter(rate.Limit(opts.DialRate), burst)
	}
	return r
}

// CheckMany returns one outcome per host in input order. Slots are taken
// by the launching loop, so waiting hosts start in arrival order.
func (r *Runner) CheckMany(ctx context.Context, hosts []string) domain.BatchResult {
	out := make(domain.BatchResult, len(hosts))
	if len(hosts) == 0 {
		return out
	}

	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	start := time.Now()

	for i, host := range hosts {
		sem <- struct{}{}
		r.Metrics.SlotAcquired()
		wg.Add(1)
		go func() {
			defer func() {
				r.Metrics.SlotReleased()
				<-sem
				wg.Done()
			}()
			if r.Limiter != nil {
				if err := r.Limiter.Wait(ctx); err != nil {
					out[i] = domain.Failed(&domain.CheckError{
						Hostname:  host,
						Kind:      domain.KindTimeout,
						Message:   "waiting for dial rate: " + err.Error(),
						CheckedAt: time.Now().UTC(),
					})
					return
				}
			}
			out[i] = r.Checker.Check(ctx, host)
		}()
	}
	wg.Wait()

	failed := 0
	for _, o := range out {
		if !o.Succeeded() {
			failed++
		}
	}
	r.Logger.Info("batch_done",
		zap.Int("hosts", len(hosts)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)),
	)
	return out
}
