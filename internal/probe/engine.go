package probe

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/metrics"
)

// New wires a checker (with retries when configured) and a batch runner
// sharing the same options.
func New(opts Options, log *zap.Logger, m *metrics.Engine) (Checker, *Runner) {
	opts = opts.withDefaults()
	var chk Checker = NewTLSChecker(opts, log, m)
	if opts.RetryAttempts > 1 {
		chk = &RetryChecker{Inner: chk, Attempts: opts.RetryAttempts, Backoff: opts.RetryBackoff}
	}
	return chk, NewRunner(chk, opts, log, m)
}

// CheckSingle inspects one host.
func CheckSingle(ctx context.Context, host string, opts Options) domain.Outcome {
	chk, _ := New(opts, nil, nil)
	return chk.Check(ctx, host)
}

// CheckBatch inspects hosts concurrently, preserving input order.
func CheckBatch(ctx context.Context, hosts []string, opts Options) domain.BatchResult {
	_, runner := New(opts, nil, nil)
	return runner.CheckMany(ctx, hosts)
}

// LoadRootCAs reads a PEM bundle to use instead of the system roots.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca bundle %s: no certificates found", path)
	}
	return pool, nil
}
