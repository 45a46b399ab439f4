package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/notify"
	"github.com/hamed0406/tlscheck/internal/repo/memory"
)

// ---- shared helpers ----

type fakeResults struct {
	rows []domain.Outcome
}

func (f *fakeResults) Append(ctx context.Context, o domain.Outcome) error { return nil }
func (f *fakeResults) Latest(ctx context.Context) ([]domain.Outcome, error) {
	return f.rows, nil
}

type memNotifier struct {
	sent []notify.Alert
}

func (m *memNotifier) Send(ctx context.Context, a notify.Alert) error {
	m.sent = append(m.sent, a)
	return nil
}

func healthy(host string) domain.Outcome {
	return domain.OK(domain.CheckResult{Hostname: host, Port: 443, IsValid: true, DaysUntilExpiry: 80, CheckedAt: time.Now()})
}

func expiring(host string) domain.Outcome {
	return domain.OK(domain.CheckResult{Hostname: host, Port: 443, IsValid: true, IsExpiringSoon: true, DaysUntilExpiry: 5, CheckedAt: time.Now()})
}

func failing(host string) domain.Outcome {
	return domain.Failed(&domain.CheckError{Hostname: host, Kind: domain.KindTimeout, Message: "i/o timeout", CheckedAt: time.Now()})
}

// ---- tests ----

func TestAlerter_SendsOnUnhealthy_RespectsCooldown(t *testing.T) {
	results := &fakeResults{rows: []domain.Outcome{failing("a.example")}}
	nt := &memNotifier{}
	al := NewAlerter(results, memory.New(), nt, AlerterConfig{
		AlertOnRecovery: true,
		Cooldown:        time.Minute,
		PollInterval:    10 * time.Millisecond,
	}, nil)

	// first scan -> should alert
	if err := al.scanOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nt.sent) != 1 || !strings.Contains(nt.sent[0].Text, "Timeout") {
		t.Fatalf("want 1 alert naming the error, got %+v", nt.sent)
	}

	// same state again -> no new alert
	if err := al.scanOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nt.sent) != 1 {
		t.Fatalf("want no repeat, got %d", len(nt.sent))
	}

	// flip to healthy -> recovery alert allowed
	results.rows = []domain.Outcome{healthy("a.example")}
	if err := al.scanOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nt.sent) != 2 || !nt.sent[1].Healthy {
		t.Fatalf("want recovery alert, got %+v", nt.sent)
	}

	// unhealthy again within cooldown -> suppressed
	results.rows = []domain.Outcome{expiring("a.example")}
	if err := al.scanOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nt.sent) != 2 {
		t.Fatalf("want cooldown to suppress, got %d", len(nt.sent))
	}

	// once cooled, the next flip to unhealthy alerts again
	al.cfg.AlertOnRecovery = false
	al.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	results.rows = []domain.Outcome{healthy("a.example")}
	_ = al.scanOnce(context.Background())
	results.rows = []domain.Outcome{expiring("a.example")}
	_ = al.scanOnce(context.Background())
	if len(nt.sent) != 3 {
		t.Fatalf("want 3 alerts, got %d", len(nt.sent))
	}
	last := nt.sent[2]
	if last.Healthy || !strings.Contains(last.Title, "expiring") {
		t.Fatalf("expected expiring alert after cooldown, got %+v", last)
	}
}

func TestAlerter_NoRecoveryIfDisabled(t *testing.T) {
	results := &fakeResults{rows: []domain.Outcome{healthy("b.example")}}
	nt := &memNotifier{}
	al := NewAlerter(results, memory.New(), nt, AlerterConfig{AlertOnRecovery: false}, nil)

	// first time healthy -> nothing to report
	if err := al.scanOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(nt.sent) != 0 {
		t.Fatalf("unexpected alert: %d", len(nt.sent))
	}

	// go unhealthy -> should alert
	results.rows = []domain.Outcome{failing("b.example")}
	_ = al.scanOnce(context.Background())
	if len(nt.sent) != 1 {
		t.Fatalf("want one alert, got %d", len(nt.sent))
	}

	// recover -> silent
	results.rows = []domain.Outcome{healthy("b.example")}
	_ = al.scanOnce(context.Background())
	if len(nt.sent) != 1 {
		t.Fatalf("recovery alert should be off, got %d", len(nt.sent))
	}
}

func TestTitle(t *testing.T) {
	expired := domain.OK(domain.CheckResult{IsExpired: true})
	invalid := domain.OK(domain.CheckResult{})
	cases := map[string]domain.Outcome{
		"failed":   failing("x"),
		"expired":  expired,
		"invalid":  invalid,
		"expiring": expiring("x"),
		"healthy":  healthy("x"),
	}
	for want, o := range cases {
		if got := title(o); !strings.Contains(got, want) {
			t.Errorf("title(%s) = %q", want, got)
		}
	}
}
