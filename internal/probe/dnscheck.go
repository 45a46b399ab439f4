package probe

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// DNS classes reported in resolution failure messages.
const (
	dnsNXDomain  = "NXDOMAIN"
	dnsNoRecords = "NO_A_RECORD"
	dnsServFail  = "SERVFAIL_or_TIMEOUT"
)

// resolveHost returns the addresses to dial for host. IP literals are
// returned unchanged without consulting the resolver.
func resolveHost(ctx context.Context, r *net.Resolver, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, classifyDNS(ctx, host, err)
	}
	if len(addrs) == 0 {
		return nil, domain.NewCheckError(domain.KindDNSResolutionFailed, "%s: %s", dnsNoRecords, host)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

func classifyDNS(ctx context.Context, host string, err error) *domain.CheckError {
	if ctx.Err() != nil {
		return domain.NewCheckError(domain.KindTimeout, "dns lookup for %s: %v", host, ctx.Err())
	}
	class := dnsServFail
	var de *net.DNSError
	if errors.As(err, &de) {
		switch {
		case de.IsNotFound:
			class = dnsNXDomain
		case de.IsTimeout:
			return domain.NewCheckError(domain.KindTimeout, "dns lookup for %s: %v", host, err)
		}
	}
	return &domain.CheckError{
		Kind:    domain.KindDNSResolutionFailed,
		Message: fmt.Sprintf("%s: %v", class, err),
	}
}
