package checks

import (
	"context"
	"fmt"
	"sort"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckFailedLogins = "failed_logins"

// FailedLoginsCheck watches the auth log for brute-force patterns. A burst
// above the threshold is a warning, downgraded to info when fail2ban is
// already banning the sources.
type FailedLoginsCheck struct {
	cfg domain.Config
	log domain.AuthLogInspector
}

func NewFailedLoginsCheck(cfg domain.Config, log domain.AuthLogInspector) *FailedLoginsCheck {
	return &FailedLoginsCheck{cfg: cfg, log: log}
}

func (c *FailedLoginsCheck) ID() string { return CheckFailedLogins }

func (c *FailedLoginsCheck) Evaluate(ctx context.Context) []domain.Finding {
	attempts, err := c.log.FailedLogins(ctx, c.cfg.Logins.Window.Std())
	if err != nil {
		return []domain.Finding{failSoft(CheckFailedLogins, err)}
	}

	banning := c.log.Fail2banActive(ctx)

	if len(attempts) <= c.cfg.Logins.Threshold {
		details := []string{
			fmt.Sprintf("%d failed attempt(s) within %s, threshold %d",
				len(attempts), c.cfg.Logins.Window, c.cfg.Logins.Threshold),
		}
		if !banning {
			details = append(details, "fail2ban is not running; consider installing it")
		}
		return []domain.Finding{ok(CheckFailedLogins, "normal failed-login rate", details...)}
	}

	counts := make(map[string]int)
	for _, a := range attempts {
		counts[a.SourceIP]++
	}
	type source struct {
		ip string
		n  int
	}
	top := make([]source, 0, len(counts))
	for ip, n := range counts {
		top = append(top, source{ip, n})
	}
	sort.Slice(top, func(i, j int) bool { return top[i].n > top[j].n })
	if len(top) > 5 {
		top = top[:5]
	}

	details := []string{
		fmt.Sprintf("%d failed attempt(s) within %s, threshold %d",
			len(attempts), c.cfg.Logins.Window, c.cfg.Logins.Threshold),
		"top sources:",
	}
	for _, s := range top {
		details = append(details, fmt.Sprintf("  %4d attempts from %s", s.n, s.ip))
	}

	if banning {
		details = append(details, "fail2ban is active and banning these sources")
		return []domain.Finding{{
			CheckID:  CheckFailedLogins,
			Severity: domain.SeverityInfo,
			Message:  fmt.Sprintf("brute-force burst handled by fail2ban: %d attempts", len(attempts)),
			Details:  details,
		}}
	}

	details = append(details, "install fail2ban to ban attackers automatically")
	return []domain.Finding{{
		CheckID:  CheckFailedLogins,
		Severity: domain.SeverityWarning,
		Message:  fmt.Sprintf("high failed-login rate: %d attempts within %s", len(attempts), c.cfg.Logins.Window),
		Details:  details,
	}}
}
