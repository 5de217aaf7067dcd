package checks

import (
	"context"
	"fmt"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckUpdates = "package_updates"

// UpdatesCheck reports pending package updates. Security updates are flagged
// as warnings; kernel and other updates are informational only. Nothing here
// is ever remediated automatically, unattended upgrades are the operator's
// call.
type UpdatesCheck struct {
	packages domain.PackageInspector
}

func NewUpdatesCheck(packages domain.PackageInspector) *UpdatesCheck {
	return &UpdatesCheck{packages: packages}
}

func (c *UpdatesCheck) ID() string { return CheckUpdates }

func (c *UpdatesCheck) Evaluate(ctx context.Context) []domain.Finding {
	pending, err := c.packages.PendingUpdates(ctx)
	if err != nil {
		return []domain.Finding{failSoft(CheckUpdates, err)}
	}

	if pending.Total() == 0 {
		return []domain.Finding{ok(CheckUpdates, "system packages are up to date")}
	}

	var findings []domain.Finding
	if n := len(pending.Security); n > 0 {
		details := pending.Security
		if len(details) > 10 {
			details = append(details[:10:10], fmt.Sprintf("and %d more", len(pending.Security)-10))
		}
		findings = append(findings, domain.Finding{
			CheckID:  CheckUpdates,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("%d security update(s) pending", n),
			Details:  details,
		})
	}
	if n := len(pending.Kernel); n > 0 {
		findings = append(findings, domain.Finding{
			CheckID:  CheckUpdates,
			Severity: domain.SeverityInfo,
			Message:  fmt.Sprintf("%d kernel update(s) pending, reboot will be required", n),
			Details:  pending.Kernel,
		})
	}
	if n := len(pending.Other); n > 0 {
		findings = append(findings, domain.Finding{
			CheckID:  CheckUpdates,
			Severity: domain.SeverityInfo,
			Message:  fmt.Sprintf("%d non-security update(s) pending", n),
		})
	}
	return findings
}
