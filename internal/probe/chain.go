package probe

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"

	"github.com/hamed0406/tlscheck/internal/domain"
)

// ExtractChain converts the peer chain, leaf first, into CertificateInfo values.
func ExtractChain(state tls.ConnectionState) ([]domain.CertificateInfo, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, domain.NewCheckError(domain.KindNoCertificate, "peer presented no certificates")
	}
	chain := make([]domain.CertificateInfo, 0, len(state.PeerCertificates))
	for _, cert := range state.PeerCertificates {
		chain = append(chain, certificateInfo(cert))
	}
	return chain, nil
}

func certificateInfo(cert *x509.Certificate) domain.CertificateInfo {
	sum := sha256.Sum256(cert.Raw)
	return domain.CertificateInfo{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		SerialNumber:       cert.SerialNumber.Text(16),
		NotBefore:          cert.NotBefore.UTC(),
		NotAfter:           cert.NotAfter.UTC(),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		PublicKeyBits:      publicKeyBits(cert.PublicKey),
		SubjectAltNames:    subjectAltNames(cert),
		IsCA:               cert.IsCA,
		FingerprintSHA256:  hex.EncodeToString(sum[:]),
	}
}

func publicKeyBits(pub any) int {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k.N.BitLen()
	case *ecdsa.PublicKey:
		return k.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	}
	return 0
}

// subjectAltNames flattens every SAN kind into one list, first occurrence wins.
func subjectAltNames(cert *x509.Certificate) []string {
	sans := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	seen := make(map[string]struct{}, cap(sans))
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		sans = append(sans, v)
	}
	for _, n := range cert.DNSNames {
		add(n)
	}
	for _, ip := range cert.IPAddresses {
		add(ip.String())
	}
	for _, e := range cert.EmailAddresses {
		add(e)
	}
	for _, u := range cert.URIs {
		add(u.String())
	}
	return sans
}

// connectionInfo summarises the negotiated session for host.
func connectionInfo(host string, hs Handshake) domain.ConnectionInfo {
	info := domain.ConnectionInfo{
		Protocol:       tls.VersionName(hs.State.Version),
		CipherSuite:    tls.CipherSuiteName(hs.State.CipherSuite),
		ChainValidated: hs.Verified,
		ALPN:           hs.State.NegotiatedProtocol,
		RemoteAddr:     hs.RemoteAddr,
		HandshakeMS:    float64(hs.Latency.Microseconds()) / 1000,
	}
	if hs.VerifyErr != nil {
		info.ValidationError = hs.VerifyErr.Error()
	}
	if len(hs.State.PeerCertificates) > 0 {
		info.HostnameMatches = hs.State.PeerCertificates[0].VerifyHostname(host) == nil
	}
	return info
}
