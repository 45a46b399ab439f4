package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// Handshake is what a completed TLS handshake exposes to the rest of the engine.
type Handshake struct {
	State      tls.ConnectionState
	Verified   bool
	VerifyErr  error
	RemoteAddr string
	Latency    time.Duration
}

// Conn is an open, handshaken connection. Callers must Close it.
type Conn interface {
	Handshake() Handshake
	Close() error
}

// Connector opens a TLS session to a target. A non-nil error is a
// *domain.CheckError whose Kind says which stage failed.
type Connector interface {
	Connect(ctx context.Context, t domain.Target) (Conn, error)
}

// TLSConnector dials over TCP and completes the handshake without trusting
// the peer, then verifies the presented chain as a separate step so that
// expired or self-signed certificates can still be inspected.
type TLSConnector struct {
	Dialer   *net.Dialer
	Resolver *net.Resolver
	// RootCAs overrides the system trust store when set.
	RootCAs *x509.CertPool
	// VerifyTrust turns a failed chain verification into a HandshakeFailed error.
	VerifyTrust bool
}

type tlsConn struct {
	*tls.Conn
	hs Handshake
}

func (c *tlsConn) Handshake() Handshake { return c.hs }

const (
	stageDial      = "dial"
	stageHandshake = "handshake"
)

func (c *TLSConnector) Connect(ctx context.Context, t domain.Target) (Conn, error) {
	ips, err := resolveHost(ctx, c.Resolver, t.Host)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := c.dialAny(ctx, ips, t.Port)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName:         t.Host,
		InsecureSkipVerify: true, // verified below against RootCAs
		MinVersion:         tls.VersionTLS10,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, classify(err, stageHandshake)
	}
	_ = raw.SetDeadline(time.Time{})

	state := conn.ConnectionState()
	hs := Handshake{
		State:      state,
		RemoteAddr: raw.RemoteAddr().String(),
		Latency:    time.Since(start),
	}
	if len(state.PeerCertificates) > 0 {
		hs.VerifyErr = verifyChain(state.PeerCertificates, c.RootCAs, time.Now())
		hs.Verified = hs.VerifyErr == nil
		if c.VerifyTrust && !hs.Verified {
			_ = conn.Close()
			return nil, domain.NewCheckError(domain.KindHandshakeFailed, "certificate verification failed: %v", hs.VerifyErr)
		}
	}
	return &tlsConn{Conn: conn, hs: hs}, nil
}

// dialAny tries each resolved address in order and returns the first
// connection. The error of the last attempt is reported.
func (c *TLSConnector) dialAny(ctx context.Context, ips []net.IP, port int) (net.Conn, error) {
	d := c.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	var last error
	for _, ip := range ips {
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
		if err == nil {
			return conn, nil
		}
		last = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, classify(last, stageDial)
}

// verifyChain checks trust only. Hostname matching is reported separately.
func verifyChain(chain []*x509.Certificate, roots *x509.CertPool, now time.Time) error {
	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	return err
}

// classify maps a network or TLS error onto an error kind.
func classify(err error, stage string) *domain.CheckError {
	var ce *domain.CheckError
	if errors.As(err, &ce) {
		return ce
	}
	kind := domain.KindHandshakeFailed
	if stage == stageDial {
		kind = domain.KindConnectionRefused
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = domain.KindTimeout
	case errors.As(err, &dnsErr):
		kind = domain.KindDNSResolutionFailed
		if dnsErr.IsTimeout {
			kind = domain.KindTimeout
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = domain.KindConnectionRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		kind = domain.KindConnectionReset
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = domain.KindTimeout
	}
	return &domain.CheckError{Kind: kind, Message: err.Error()}
}
