package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/metrics"
	"github.com/hamed0406/tlscheck/internal/repo/memory"
)

// --- fakes ---

type fakeTargets struct {
	hosts []string
	err   error
}

func (f *fakeTargets) Add(ctx context.Context, t domain.WatchTarget) error { return nil }
func (f *fakeTargets) List(ctx context.Context) ([]domain.WatchTarget, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.WatchTarget, len(f.hosts))
	for i, h := range f.hosts {
		out[i] = domain.WatchTarget{Host: h}
	}
	return out, nil
}

// fakeRunner reports every host as healthy except those in fail.
type fakeRunner struct {
	mu    sync.Mutex
	calls int
	fail  map[string]bool
}

func (f *fakeRunner) CheckMany(ctx context.Context, hosts []string) domain.BatchResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make(domain.BatchResult, len(hosts))
	for i, h := range hosts {
		if f.fail[h] {
			out[i] = domain.Failed(&domain.CheckError{Hostname: h, Kind: domain.KindConnectionRefused, CheckedAt: time.Now().UTC()})
			continue
		}
		out[i] = domain.OK(domain.CheckResult{Hostname: h, Port: 443, IsValid: true, DaysUntilExpiry: 60, CheckedAt: time.Now().UTC()})
	}
	return out
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- tests ---

func TestWatcher_RunOnce_StoresOutcomesAndGauges(t *testing.T) {
	store := memory.New()
	m := metrics.NewEngine()
	runner := &fakeRunner{fail: map[string]bool{"down.example": true}}
	w := NewWatcher(zap.NewNop(), &fakeTargets{hosts: []string{"up.example", "down.example"}}, store, runner, m, time.Hour)

	out, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(out) != 2 || out[0].Hostname() != "up.example" {
		t.Fatalf("unexpected batch: %+v", out)
	}

	rows, _ := store.Latest(context.Background())
	if len(rows) != 2 {
		t.Fatalf("expected 2 stored outcomes, got %d", len(rows))
	}

	if n := testutil.CollectAndCount(m.Collectors()[3]); n != 1 {
		t.Fatalf("expected only the healthy host in the expiry gauge, got %d series", n)
	}
}

func TestWatcher_RunOnce_ListError(t *testing.T) {
	runner := &fakeRunner{}
	w := NewWatcher(nil, &fakeTargets{err: errors.New("boom")}, memory.New(), runner, nil, time.Hour)
	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected list error")
	}
	if runner.count() != 0 {
		t.Fatalf("runner should not be called")
	}
}

func TestWatcher_RunLoop_ImmediatePassAndStop(t *testing.T) {
	runner := &fakeRunner{}
	w := NewWatcher(zap.NewNop(), &fakeTargets{hosts: []string{"a.example"}}, memory.New(), runner, nil, 2*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for runner.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if runner.count() < 2 {
		t.Fatalf("expected immediate pass plus ticks, got %d", runner.count())
	}
}

func TestWatcher_DisabledReturnsImmediately(t *testing.T) {
	runner := &fakeRunner{}
	w := NewWatcher(nil, &fakeTargets{}, memory.New(), runner, nil, 0)
	w.Run(context.Background())
	if runner.count() != 0 {
		t.Fatalf("disabled watcher should not check")
	}
}
