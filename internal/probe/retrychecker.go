package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// RetryChecker repeats checks that failed with a retryable kind, doubling
// the backoff after each attempt.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

func (r *RetryChecker) Check(ctx context.Context, target string) domain.Outcome {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last domain.Outcome
	n := 0
	for n < attempts {
		n++
		last = r.Inner.Check(ctx, target)
		if last.Err == nil || !last.Err.Kind.Retryable() || n == attempts {
			break
		}
		if !sleepCtx(ctx, expBackoff(r.Backoff, n)) {
			break
		}
	}
	if last.Err != nil && n > 1 {
		last.Err.Message = fmt.Sprintf("%s (after %d attempts)", last.Err.Message, n)
	}
	return last
}

// expBackoff returns initial * 2^(iteration-1).
func expBackoff(initial time.Duration, iteration int) time.Duration {
	if iteration <= 1 {
		return initial
	}
	return initial << (iteration - 1)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
