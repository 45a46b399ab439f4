package probe

import (
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
)

const day = 24 * time.Hour

const secondsPerDay = int64(day / time.Second)

// Evaluate derives the verdict for a chain observed at now. The leaf is
// chain[0]; intermediates are carried through untouched.
func Evaluate(t domain.Target, chain []domain.CertificateInfo, conn domain.ConnectionInfo, now time.Time, thresholdDays int) domain.CheckResult {
	now = now.UTC()
	var leaf domain.CertificateInfo
	if len(chain) > 0 {
		leaf = chain[0]
	}

	expired := now.After(leaf.NotAfter)
	days := daysUntil(leaf.NotAfter, now)

	return domain.CheckResult{
		Hostname:        t.Raw,
		Port:            t.Port,
		Certificate:     leaf,
		Chain:           chain,
		Connection:      conn,
		IsExpired:       expired,
		DaysUntilExpiry: days,
		IsExpiringSoon:  !expired && days <= thresholdDays,
		IsValid:         !expired && conn.ChainValidated && !now.Before(leaf.NotBefore),
		CheckedAt:       now,
	}
}

// daysUntil is floor((notAfter-now)/24h), negative once expired. Computed on
// epoch seconds since time.Duration tops out near 292 years.
func daysUntil(notAfter, now time.Time) int {
	secs := notAfter.Unix() - now.Unix()
	if notAfter.Nanosecond() < now.Nanosecond() {
		secs--
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return int(days)
}
