package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr     string // API bind address, e.g., "127.0.0.1:8080" (Windows) or ":8080" (Docker)
	LogDir   string // logs directory
	LogLevel string // debug, info, warn, error
	// LogStdout tees log lines to stderr in addition to the rotating file.
	LogStdout bool

	// Check engine
	CheckTimeout        time.Duration // end-to-end budget for one check
	MaxConcurrentChecks int           // batch admission limit
	VerifyTrust         bool          // untrusted chains become HandshakeFailed
	ExpiryThresholdDays int
	DefaultPort         int
	DialRate            float64 // check starts per second, 0 = unlimited
	CABundle            string  // PEM file replacing the system roots
	RetryAttempts       int     // total attempts for retryable failures
	RetryBackoff        time.Duration
	MaxBatchSize        int

	// API surface
	PublicAPIKeys  []string
	AdminAPIKeys   []string
	PublicRPM      int
	PublicBurst    int
	AllowedOrigins []string

	// Watcher + alerts
	WatchFile       string
	WatchInterval   time.Duration
	SlackWebhookURL string
	AlertCooldown   time.Duration
	AlertOnRecovery bool
}

func FromEnv() Config {
	// Bind address (Windows-friendly default)
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = os.Getenv("API_ADDR")
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	return Config{
		Addr:      addr,
		LogDir:    getString("LOG_DIR", "logs"),
		LogLevel:  getString("LOG_LEVEL", "info"),
		LogStdout: getBool("LOG_STDOUT", false),

		CheckTimeout:        getMillis("CHECK_TIMEOUT_MS", 5*time.Second),
		MaxConcurrentChecks: getInt("MAX_CONCURRENT_CHECKS", 20),
		VerifyTrust:         getBool("VERIFY_TRUST", false),
		ExpiryThresholdDays: getInt("EXPIRY_THRESHOLD_DAYS", 30),
		DefaultPort:         getInt("DEFAULT_PORT", 443),
		DialRate:            getFloat("DIAL_RATE", 0),
		CABundle:            os.Getenv("CA_BUNDLE"),
		RetryAttempts:       getInt("RETRY_ATTEMPTS", 1),
		RetryBackoff:        getMillis("RETRY_BACKOFF_MS", 300*time.Millisecond),
		MaxBatchSize:        getInt("MAX_BATCH_SIZE", 100),

		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:      getInt("PUBLIC_RPM", 60),
		PublicBurst:    getInt("PUBLIC_BURST", 20),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		WatchFile:       os.Getenv("WATCH_FILE"),
		WatchInterval:   getMillis("WATCH_INTERVAL_MS", time.Hour),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		AlertCooldown:   getMillis("ALERT_COOLDOWN_MS", 6*time.Hour),
		AlertOnRecovery: getBool("ALERT_ON_RECOVERY", true),
	}
}

// Validate reports every problem at once rather than the first one.
func (c Config) Validate() error {
	var err error
	if _, _, e := net.SplitHostPort(c.Addr); e != nil {
		err = multierr.Append(err, fmt.Errorf("ADDR %q: %w", c.Addr, e))
	}
	if _, e := zapcore.ParseLevel(c.LogLevel); e != nil {
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL: %w", e))
	}
	if c.CheckTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("CHECK_TIMEOUT_MS must be positive, got %s", c.CheckTimeout))
	}
	if c.MaxConcurrentChecks < 1 {
		err = multierr.Append(err, fmt.Errorf("MAX_CONCURRENT_CHECKS must be >= 1, got %d", c.MaxConcurrentChecks))
	}
	if c.ExpiryThresholdDays < 0 {
		err = multierr.Append(err, fmt.Errorf("EXPIRY_THRESHOLD_DAYS must be >= 0, got %d", c.ExpiryThresholdDays))
	}
	if c.DefaultPort < 1 || c.DefaultPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("DEFAULT_PORT out of range: %d", c.DefaultPort))
	}
	if c.DialRate < 0 {
		err = multierr.Append(err, fmt.Errorf("DIAL_RATE must be >= 0, got %g", c.DialRate))
	}
	if c.RetryAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("RETRY_ATTEMPTS must be >= 1, got %d", c.RetryAttempts))
	}
	if c.MaxBatchSize < 1 {
		err = multierr.Append(err, fmt.Errorf("MAX_BATCH_SIZE must be >= 1, got %d", c.MaxBatchSize))
	}
	if c.CABundle != "" {
		if _, e := os.Stat(c.CABundle); e != nil {
			err = multierr.Append(err, fmt.Errorf("CA_BUNDLE: %w", e))
		}
	}
	if c.WatchFile != "" && c.WatchInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("WATCH_INTERVAL_MS must be positive when WATCH_FILE is set"))
	}
	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, "https://") {
		err = multierr.Append(err, fmt.Errorf("SLACK_WEBHOOK_URL must be https"))
	}
	return err
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
