package probe

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/metrics"
)

// Checker inspects one target. It never returns a Go error: failures are
// carried in the Outcome.
type Checker interface {
	Check(ctx context.Context, target string) domain.Outcome
}

// Options configures the engine.
type Options struct {
	Timeout             time.Duration // end-to-end, per host
	Concurrency         int           // max simultaneous checks in a batch
	VerifyTrust         bool
	ExpiryThresholdDays int
	DefaultPort         int
	DialRate            float64 // new checks per second across a batch, 0 = unlimited
	RootCAs             *x509.CertPool
	RetryAttempts       int
	RetryBackoff        time.Duration
}

func DefaultOptions() Options {
	return Options{
		Timeout:             5 * time.Second,
		Concurrency:         20,
		ExpiryThresholdDays: 30,
		DefaultPort:         DefaultPort,
		RetryAttempts:       1,
		RetryBackoff:        300 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Concurrency < 1 {
		o.Concurrency = d.Concurrency
	}
	if o.ExpiryThresholdDays < 0 {
		o.ExpiryThresholdDays = d.ExpiryThresholdDays
	}
	if o.DefaultPort <= 0 {
		o.DefaultPort = d.DefaultPort
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}
	return o
}

// TLSChecker runs connect, extract and evaluate for a single host.
type TLSChecker struct {
	Connector Connector
	Options   Options
	Logger    *zap.Logger
	Metrics   *metrics.Engine
	// Now is the clock; tests pin it.
	Now func() time.Time
}

func NewTLSChecker(opts Options, log *zap.Logger, m *metrics.Engine) *TLSChecker {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &TLSChecker{
		Connector: &TLSConnector{
			Dialer:      &net.Dialer{KeepAlive: -1},
			RootCAs:     opts.RootCAs,
			VerifyTrust: opts.VerifyTrust,
		},
		Options: opts,
		Logger:  log,
		Metrics: m,
		Now:     time.Now,
	}
}

func (c *TLSChecker) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func (c *TLSChecker) Check(ctx context.Context, target string) domain.Outcome {
	start := time.Now()
	opts := c.Options.withDefaults()

	var out domain.Outcome
	t, err := ParseTarget(target, opts.DefaultPort)
	if err != nil {
		out = c.failed(t, domain.NewCheckError(domain.KindInvalidHostname, "%v", err))
	} else {
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		out = c.inspect(ctx, t, opts)
		cancel()
	}

	c.Metrics.ObserveOutcome(out, time.Since(start))
	if c.Logger != nil {
		c.Logger.Debug("check_done",
			zap.String("host", target),
			zap.String("status", out.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
	return out
}

// inspect owns the connection for its whole lifetime; every path closes it.
func (c *TLSChecker) inspect(ctx context.Context, t domain.Target, opts Options) domain.Outcome {
	conn, err := c.Connector.Connect(ctx, t)
	if err != nil {
		return c.failed(t, asCheckError(err))
	}
	defer conn.Close()

	hs := conn.Handshake()
	chain, err := ExtractChain(hs.State)
	if err != nil {
		return c.failed(t, asCheckError(err))
	}
	if err := ctx.Err(); err != nil {
		return c.failed(t, domain.NewCheckError(domain.KindTimeout, "check exceeded %s: %v", opts.Timeout, err))
	}
	return domain.OK(Evaluate(t, chain, connectionInfo(t.Host, hs), c.now(), opts.ExpiryThresholdDays))
}

func (c *TLSChecker) failed(t domain.Target, ce *domain.CheckError) domain.Outcome {
	e := *ce
	e.Hostname = t.Raw
	e.Port = t.Port
	e.CheckedAt = c.now()
	return domain.Failed(&e)
}

func asCheckError(err error) *domain.CheckError {
	var ce *domain.CheckError
	if errors.As(err, &ce) {
		return ce
	}
	return classify(err, stageHandshake)
}
