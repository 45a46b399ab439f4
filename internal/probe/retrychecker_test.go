package probe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// fake checker you can control
type fakeChecker struct {
	results []domain.Outcome
	i       int
}

func (f *fakeChecker) Check(ctx context.Context, target string) domain.Outcome {
	if f.i >= len(f.results) {
		return domain.Failed(&domain.CheckError{Hostname: target, Kind: domain.KindHandshakeFailed, Message: "no more"})
	}
	r := f.results[f.i]
	f.i++
	return r
}

func failure(kind domain.ErrorKind, msg string) domain.Outcome {
	return domain.Failed(&domain.CheckError{Hostname: "example.com", Kind: kind, Message: msg})
}

func TestRetryChecker_SucceedsAfterTimeout(t *testing.T) {
	f := &fakeChecker{
		results: []domain.Outcome{
			failure(domain.KindTimeout, "first fail"),
			domain.OK(domain.CheckResult{Hostname: "example.com", IsValid: true}),
		},
	}
	rc := &RetryChecker{Inner: f, Attempts: 3, Backoff: 10 * time.Millisecond}
	out := rc.Check(context.Background(), "example.com")
	if !out.Succeeded() {
		t.Fatalf("expected success after retry, got %+v", out.Err)
	}
	if f.i != 2 {
		t.Fatalf("expected 2 attempts, got %d", f.i)
	}
}

func TestRetryChecker_AllFailAnnotates(t *testing.T) {
	f := &fakeChecker{
		results: []domain.Outcome{
			failure(domain.KindConnectionReset, "fail1"),
			failure(domain.KindConnectionReset, "fail2"),
		},
	}
	rc := &RetryChecker{Inner: f, Attempts: 2, Backoff: 0}
	out := rc.Check(context.Background(), "example.com")
	if out.Succeeded() {
		t.Fatalf("expected failure, got success")
	}
	if !strings.HasSuffix(out.Err.Message, "(after 2 attempts)") {
		t.Fatalf("expected failure message annotation, got %q", out.Err.Message)
	}
}

func TestRetryChecker_DoesNotRetryPermanentKinds(t *testing.T) {
	f := &fakeChecker{
		results: []domain.Outcome{
			failure(domain.KindInvalidHostname, "bad"),
			domain.OK(domain.CheckResult{}),
		},
	}
	rc := &RetryChecker{Inner: f, Attempts: 5}
	out := rc.Check(context.Background(), "example.com")
	if out.Succeeded() || out.Err.Kind != domain.KindInvalidHostname {
		t.Fatalf("expected the first permanent failure, got %+v", out)
	}
	if f.i != 1 {
		t.Fatalf("expected a single attempt, got %d", f.i)
	}
	if out.Err.Message != "bad" {
		t.Fatalf("single attempt should not be annotated: %q", out.Err.Message)
	}
}

func TestRetryChecker_StopsWhenContextDone(t *testing.T) {
	f := &fakeChecker{
		results: []domain.Outcome{
			failure(domain.KindTimeout, "t1"),
			failure(domain.KindTimeout, "t2"),
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := &RetryChecker{Inner: f, Attempts: 2, Backoff: time.Hour}
	out := rc.Check(ctx, "example.com")
	if out.Succeeded() || f.i != 1 {
		t.Fatalf("expected to stop after first attempt, attempts=%d", f.i)
	}
}

func TestExpBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	want := []time.Duration{base, 2 * base, 4 * base, 8 * base}
	for i, w := range want {
		if got := expBackoff(base, i+1); got != w {
			t.Fatalf("iteration %d: got %s want %s", i+1, got, w)
		}
	}
}
