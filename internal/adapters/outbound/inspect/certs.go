package inspect

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Certs resolves certificate expiry by completing a TLS handshake against
// port 443 (or the port embedded in the host string).
type Certs struct {
	dialer *net.Dialer
}

func NewCerts() *Certs {
	return &Certs{dialer: &net.Dialer{Timeout: 10 * time.Second}}
}

func (c *Certs) Expiry(ctx context.Context, host string) (time.Time, error) {
	// A bare hostname or IPv6 literal fails SplitHostPort; default to 443.
	addr := host
	serverName, _, err := net.SplitHostPort(host)
	if err != nil {
		serverName = host
		addr = net.JoinHostPort(host, "443")
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// Verification is skipped so an already expired or untrusted certificate
	// still yields its NotAfter; no trust decision is made here.
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return time.Time{}, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	defer tlsConn.Close()

	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, fmt.Errorf("%s presented no certificate", host)
	}
	return certs[0].NotAfter, nil
}
