package probe

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// DefaultPort is used when a target carries no explicit port.
const DefaultPort = 443

// ParseTarget validates a bare hostname or host:port. URLs, paths and
// anything with whitespace are rejected; the engine never guesses.
func ParseTarget(raw string, defaultPort int) (domain.Target, error) {
	if defaultPort <= 0 {
		defaultPort = DefaultPort
	}
	t := domain.Target{Raw: raw, Port: defaultPort}

	if raw == "" {
		return t, errors.New("hostname is empty")
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return t, errors.New("hostname contains whitespace")
	}
	if strings.Contains(raw, "://") {
		return t, errors.New("hostname must not include a scheme")
	}
	if strings.ContainsAny(raw, "/?#@") {
		return t, errors.New("expected a bare hostname, not a URL")
	}

	host, port, err := splitHostPort(raw)
	if err != nil {
		return t, err
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return t, fmt.Errorf("invalid port %q", port)
		}
		t.Port = n
	}

	if ip := net.ParseIP(host); ip != nil {
		t.Host = ip.String()
		return t, nil
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if err := validateDNSName(host); err != nil {
		return t, err
	}
	t.Host = host
	return t, nil
}

func splitHostPort(raw string) (host, port string, err error) {
	switch n := strings.Count(raw, ":"); {
	case strings.HasPrefix(raw, "["):
		host, port, err = net.SplitHostPort(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid host:port: %w", err)
		}
		if net.ParseIP(host) == nil {
			return "", "", fmt.Errorf("invalid IPv6 literal %q", host)
		}
		if port == "" {
			return "", "", fmt.Errorf("invalid port %q", port)
		}
		return host, port, nil
	case n == 0:
		return raw, "", nil
	case n == 1:
		host, port, err = net.SplitHostPort(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid host:port: %w", err)
		}
		if host == "" {
			return "", "", errors.New("hostname is empty")
		}
		if port == "" {
			return "", "", fmt.Errorf("invalid port %q", port)
		}
		return host, port, nil
	default:
		// unbracketed IPv6 without port
		if net.ParseIP(raw) == nil {
			return "", "", fmt.Errorf("invalid host %q", raw)
		}
		return raw, "", nil
	}
}

// validateDNSName requires at least one dot and a non-numeric top-level label.
func validateDNSName(name string) error {
	if len(name) == 0 || len(name) > 253 {
		return fmt.Errorf("invalid hostname length %d", len(name))
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return fmt.Errorf("hostname %q has no top-level domain", name)
	}
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return fmt.Errorf("hostname %q has an empty or oversized label", name)
		}
		if l[0] == '-' || l[len(l)-1] == '-' {
			return fmt.Errorf("label %q must not start or end with a hyphen", l)
		}
		for _, r := range l {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
				return fmt.Errorf("label %q contains invalid character %q", l, r)
			}
		}
	}
	tld := labels[len(labels)-1]
	if strings.Trim(tld, "0123456789") == "" {
		return fmt.Errorf("top-level domain %q is numeric", tld)
	}
	return nil
}
