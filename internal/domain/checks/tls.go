package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckTLS = "ssl_certificates"

// TLSCheck probes each configured domain and compares the certificate's
// NotAfter against the warn and critical windows. A domain that cannot be
// probed gets a warning rather than failing the run, the host may simply be
// behind a firewall rule we just tightened.
type TLSCheck struct {
	cfg   domain.Config
	certs domain.CertificateInspector
	now   func() time.Time
}

func NewTLSCheck(cfg domain.Config, certs domain.CertificateInspector) *TLSCheck {
	return &TLSCheck{cfg: cfg, certs: certs, now: time.Now}
}

func (c *TLSCheck) ID() string { return CheckTLS }

func (c *TLSCheck) Evaluate(ctx context.Context) []domain.Finding {
	if len(c.cfg.Certs.Domains) == 0 {
		return []domain.Finding{ok(CheckTLS, "no domains configured for certificate monitoring")}
	}

	now := c.now()
	var findings []domain.Finding
	var healthy []string
	for _, host := range c.cfg.Certs.Domains {
		expiry, err := c.certs.Expiry(ctx, host)
		if err != nil {
			findings = append(findings, domain.Finding{
				CheckID:  CheckTLS,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("could not check certificate for %s", host),
				Details:  []string{err.Error()},
			})
			continue
		}

		left := expiry.Sub(now)
		days := int(left.Hours() / 24)
		switch {
		case left <= 0:
			findings = append(findings, domain.Finding{
				CheckID:  CheckTLS,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("certificate for %s has EXPIRED", host),
				Details:  []string{fmt.Sprintf("expired %s", expiry.Format("2006-01-02"))},
			})
		case days <= c.cfg.Certs.CriticalDays:
			findings = append(findings, domain.Finding{
				CheckID:  CheckTLS,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("certificate for %s expires in %d day(s)", host, days),
				Details:  []string{fmt.Sprintf("expires %s", expiry.Format("2006-01-02"))},
			})
		case days <= c.cfg.Certs.WarnDays:
			findings = append(findings, domain.Finding{
				CheckID:  CheckTLS,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("certificate for %s expires in %d day(s)", host, days),
				Details:  []string{fmt.Sprintf("expires %s", expiry.Format("2006-01-02"))},
			})
		default:
			healthy = append(healthy, fmt.Sprintf("%s: %d days left", host, days))
		}
	}

	if len(findings) == 0 {
		return []domain.Finding{ok(CheckTLS, "all certificates are healthy", healthy...)}
	}
	return findings
}
