package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/notify"
	"github.com/hamed0406/tlscheck/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter notifies when a watched host moves between healthy and
// unhealthy. Unhealthy means an error, an invalid chain or a
// certificate inside the expiry threshold.
type Alerter struct {
	results  repo.ResultStore
	alertDB  repo.AlertStore
	notifier notify.Notifier
	cfg      AlerterConfig
	log      *zap.Logger
	now      func() time.Time
}

func NewAlerter(
	results repo.ResultStore,
	alertDB repo.AlertStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
	log *zap.Logger,
) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{
		results:  results,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	if a.cfg.PollInterval <= 0 {
		a.log.Info("alerter_disabled")
		return nil
	}
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	// initial pass
	_ = a.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := a.scanOnce(ctx); err != nil {
				a.log.Warn("alerter_scan_error", zap.Error(err))
			}
		}
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	rows, err := a.results.Latest(ctx)
	if err != nil {
		return err
	}

	now := a.now()

	for _, o := range rows {
		host := o.Hostname()
		healthy := o.Succeeded() && o.Result.Healthy()
		rec, _ := a.alertDB.Get(ctx, host)

		// A host seen for the first time only counts as a change when unhealthy.
		stateChanged := (rec == nil && !healthy) || (rec != nil && rec.LastHealthy != healthy)

		// Cooldown only matters for unhealthy alerts (suppresses flapping).
		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !healthy && cooled
		recoveryAlert := stateChanged && healthy && a.cfg.AlertOnRecovery // bypass cooldown

		if downAlert || recoveryAlert {
			alert := notify.Alert{Host: host, Title: title(o), Text: describe(o), Healthy: healthy}
			if err := a.notifier.Send(ctx, alert); err != nil {
				a.log.Warn("alert_send_error", zap.String("host", host), zap.Error(err))
			} else {
				a.log.Info("alert_sent", zap.String("host", host), zap.Bool("healthy", healthy))
			}
			_ = a.alertDB.Set(ctx, host, healthy, now)
			continue
		}

		// Record the new state without a send time so cooldown keeps counting
		// from the last real notification.
		if stateChanged || rec == nil {
			_ = a.alertDB.Set(ctx, host, healthy, time.Time{})
		}
	}

	return nil
}

func title(o domain.Outcome) string {
	switch {
	case o.Err != nil:
		return "🔴 TLS check failed"
	case o.Result.IsExpired:
		return "🔴 Certificate expired"
	case !o.Result.IsValid:
		return "🔴 Certificate invalid"
	case o.Result.IsExpiringSoon:
		return "🟠 Certificate expiring soon"
	}
	return "🟢 Certificate healthy"
}

func describe(o domain.Outcome) string {
	if o.Err != nil {
		return fmt.Sprintf("Host: %s\nError: %s\nReason: %s\nChecked: %s",
			o.Err.Hostname, o.Err.Kind, o.Err.Message, o.Err.CheckedAt.Format(time.RFC3339))
	}
	r := o.Result
	return fmt.Sprintf("Host: %s:%d\nSubject: %s\nIssuer: %s\nExpires: %s (%d days)\nChecked: %s",
		r.Hostname, r.Port, r.Certificate.Subject, r.Certificate.Issuer,
		r.Certificate.NotAfter.Format(time.RFC3339), r.DaysUntilExpiry, r.CheckedAt.Format(time.RFC3339))
}
