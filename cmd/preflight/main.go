// cmd/preflight/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/multierr"

	"github.com/hamed0406/tlscheck/internal/config"
	"github.com/hamed0406/tlscheck/internal/probe"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✔")
	warnMark = color.New(color.FgYellow).Sprint("⚠")
	failMark = color.New(color.FgRed).Sprint("✖")
)

func main() {
	os.Exit(preflight(config.FromEnv(), os.Stdout, os.Stderr))
}

// preflight prints one line per finding and returns the exit status.
func preflight(cfg config.Config, stdout, stderr io.Writer) int {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(stderr, failMark, msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(stderr, warnMark, msg) }
	ok := func(msg string) { fmt.Fprintln(stdout, okMark, msg) }

	for _, err := range multierr.Errors(cfg.Validate()) {
		fail(err.Error())
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty (watch admin routes are open).")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty (watch read routes are open).")
	}
	for _, k := range append(append([]string{}, cfg.AdminAPIKeys...), cfg.PublicAPIKeys...) {
		if len(k) < 16 {
			warn("an API key is shorter than 16 characters")
			break
		}
	}

	ok("ADDR=" + cfg.Addr)
	ok(fmt.Sprintf("checks: timeout=%s concurrency=%d threshold=%dd verify_trust=%v",
		cfg.CheckTimeout, cfg.MaxConcurrentChecks, cfg.ExpiryThresholdDays, cfg.VerifyTrust))

	if cfg.CABundle != "" {
		if _, err := probe.LoadRootCAs(cfg.CABundle); err != nil {
			fail(err.Error())
		} else {
			ok("CA_BUNDLE loaded")
		}
	}

	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.WatchFile == "" {
		warn("WATCH_FILE empty; background watcher is off.")
	} else if wl, err := config.LoadWatchList(cfg.WatchFile); err != nil {
		fail(err.Error())
	} else {
		bad := 0
		for _, h := range wl.Hosts {
			if _, err := probe.ParseTarget(h, cfg.DefaultPort); err != nil {
				fail(fmt.Sprintf("watch host %q: %v", h, err))
				bad++
			}
		}
		if bad == 0 {
			ok(fmt.Sprintf("WATCH_FILE has %d hosts", len(wl.Hosts)))
		}
		if cfg.SlackWebhookURL == "" {
			warn("SLACK_WEBHOOK_URL empty; alerts are off.")
		}
	}

	if failed {
		return 1
	}
	ok("preflight passed")
	return 0
}
