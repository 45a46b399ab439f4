package domain

import (
	"fmt"
	"time"
)

// ErrorKind classifies why a check produced no certificate data.
type ErrorKind string

const (
	KindInvalidHostname     ErrorKind = "InvalidHostname"
	KindDNSResolutionFailed ErrorKind = "DnsResolutionFailed"
	KindConnectionRefused   ErrorKind = "ConnectionRefused"
	KindConnectionReset     ErrorKind = "ConnectionReset"
	KindHandshakeFailed     ErrorKind = "HandshakeFailed"
	KindNoCertificate       ErrorKind = "NoCertificate"
	KindTimeout             ErrorKind = "Timeout"
)

// Kinds lists every error kind in a stable order.
var Kinds = []ErrorKind{
	KindInvalidHostname,
	KindDNSResolutionFailed,
	KindConnectionRefused,
	KindConnectionReset,
	KindHandshakeFailed,
	KindNoCertificate,
	KindTimeout,
}

// Retryable is true for transient network conditions.
func (k ErrorKind) Retryable() bool {
	return k == KindTimeout || k == KindConnectionReset
}

// CheckError is the failed outcome of one host check.
type CheckError struct {
	Hostname  string    `json:"hostname"`
	Port      int       `json:"port,omitempty"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewCheckError builds an error without host context; the checker fills it in.
func NewCheckError(kind ErrorKind, format string, args ...any) *CheckError {
	return &CheckError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *CheckError) Error() string {
	if e.Hostname == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Hostname, e.Kind, e.Message)
}
