package domain

import (
	"net"
	"strconv"
	"time"
)

// Target is a parsed check request: a bare hostname (or IP) and a port.
// Raw keeps the caller's original spelling so results can be matched back.
type Target struct {
	Raw  string `json:"raw"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Address returns host:port suitable for dialing.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// CertificateInfo is the structural view of one certificate in a chain.
// All timestamps are UTC.
type CertificateInfo struct {
	Subject            string    `json:"subject"`
	Issuer             string    `json:"issuer"`
	SerialNumber       string    `json:"serial_number"`
	NotBefore          time.Time `json:"not_before"`
	NotAfter           time.Time `json:"not_after"`
	SignatureAlgorithm string    `json:"signature_algorithm"`
	PublicKeyAlgorithm string    `json:"public_key_algorithm"`
	PublicKeyBits      int       `json:"public_key_bits"`
	SubjectAltNames    []string  `json:"subject_alt_names"`
	IsCA               bool      `json:"is_ca"`
	FingerprintSHA256  string    `json:"fingerprint_sha256"`
}

// ConnectionInfo describes the negotiated session.
type ConnectionInfo struct {
	Protocol        string  `json:"protocol"`
	CipherSuite     string  `json:"cipher_suite"`
	ChainValidated  bool    `json:"chain_validated"`
	ValidationError string  `json:"validation_error,omitempty"`
	HostnameMatches bool    `json:"hostname_matches"`
	ALPN            string  `json:"alpn,omitempty"`
	RemoteAddr      string  `json:"remote_addr,omitempty"`
	HandshakeMS     float64 `json:"handshake_ms"`
}

// CheckResult is a successful inspection of one host.
type CheckResult struct {
	Hostname        string            `json:"hostname"`
	Port            int               `json:"port"`
	Certificate     CertificateInfo   `json:"certificate"`
	Chain           []CertificateInfo `json:"chain"`
	Connection      ConnectionInfo    `json:"connection"`
	IsValid         bool              `json:"is_valid"`
	DaysUntilExpiry int               `json:"days_until_expiry"`
	IsExpired       bool              `json:"is_expired"`
	IsExpiringSoon  bool              `json:"is_expiring_soon"`
	CheckedAt       time.Time         `json:"checked_at"`
}

// Healthy reports whether the certificate needs no attention.
func (r CheckResult) Healthy() bool {
	return r.IsValid && !r.IsExpiringSoon
}

// WatchTarget is a host the background watcher re-checks periodically.
type WatchTarget struct {
	Host      string    `json:"host"`
	CreatedAt time.Time `json:"created_at"`
}
