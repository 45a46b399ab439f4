package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hamed0406/tlscheck/internal/config"
	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/probe"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [host[:port]...]",
		Short: "Check one or more hosts",
		Example: `  tlscheck check example.com api.example.com:8443
  tlscheck check --file hosts.txt --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), v, args)
		},
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "read hosts from a file (one per line, or a YAML watch list)")
	f.Duration("timeout", 5*time.Second, "per-host timeout")
	f.Int("concurrency", 20, "maximum concurrent checks")
	f.Bool("verify-trust", false, "treat untrusted chains as handshake failures")
	f.Int("threshold", 30, "days before expiry that count as expiring soon")
	f.Int("port", probe.DefaultPort, "port used when a host has none")
	f.String("ca-bundle", "", "PEM file used instead of the system roots")
	f.StringP("output", "o", outputTable, "output format: table or json")
	bindFlags(v, cmd)
	return cmd
}

func runCheck(ctx context.Context, w io.Writer, v *viper.Viper, args []string) error {
	format := v.GetString("output")
	if format != outputTable && format != outputJSON {
		return usageError("unknown output %q (want table or json)", format)
	}

	hosts := append([]string(nil), args...)
	if path := v.GetString("file"); path != "" {
		more, err := readHosts(path)
		if err != nil {
			return usageError("%v", err)
		}
		hosts = append(hosts, more...)
	}
	if len(hosts) == 0 {
		return usageError("no hosts given")
	}

	opts := probe.Options{
		Timeout:             v.GetDuration("timeout"),
		Concurrency:         v.GetInt("concurrency"),
		VerifyTrust:         v.GetBool("verify-trust"),
		ExpiryThresholdDays: v.GetInt("threshold"),
		DefaultPort:         v.GetInt("port"),
	}
	if bundle := v.GetString("ca-bundle"); bundle != "" {
		pool, err := probe.LoadRootCAs(bundle)
		if err != nil {
			return usageError("%v", err)
		}
		opts.RootCAs = pool
	}
	if ctx == nil {
		ctx = context.Background()
	}

	out := probe.CheckBatch(ctx, hosts, opts)

	var err error
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	} else {
		err = renderTable(w, out)
	}
	if err != nil {
		return err
	}

	if n := countProblems(out); n > 0 {
		return &exitError{code: exitFailed, err: fmt.Errorf("%d of %d hosts need attention", n, len(out))}
	}
	return nil
}

// readHosts accepts a YAML watch list (.yaml/.yml) or plain text with one
// host per line and # comments.
func readHosts(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		wl, err := config.LoadWatchList(path)
		if err != nil {
			return nil, err
		}
		return wl.Hosts, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var hosts []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			hosts = append(hosts, line)
		}
	}
	return hosts, sc.Err()
}

func countProblems(out domain.BatchResult) int {
	n := 0
	for _, o := range out {
		if !o.Succeeded() || !o.Result.IsValid {
			n++
		}
	}
	return n
}
