package checks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckSSH = "ssh"

// SSHCheck audits sshd hardening. Always alert-only: rewriting sshd_config
// from an unattended job risks locking everyone out.
type SSHCheck struct {
	cfg    domain.Config
	reader domain.SSHConfigReader
}

func NewSSHCheck(cfg domain.Config, reader domain.SSHConfigReader) *SSHCheck {
	return &SSHCheck{cfg: cfg, reader: reader}
}

func (c *SSHCheck) ID() string { return CheckSSH }

func (c *SSHCheck) Evaluate(ctx context.Context) []domain.Finding {
	settings, err := c.reader.Settings(ctx)
	if err != nil {
		return []domain.Finding{failSoft(CheckSSH, err)}
	}

	var criticals, warnings []string

	// sshd defaults PasswordAuthentication to yes, so absence is as bad as
	// an explicit yes.
	switch settings["passwordauthentication"] {
	case "no":
	case "":
		criticals = append(criticals, "PasswordAuthentication not set (defaults to yes)")
	default:
		criticals = append(criticals, "PasswordAuthentication is enabled")
	}

	switch settings["permitrootlogin"] {
	case "no", "prohibit-password", "without-password":
	case "":
		warnings = append(warnings, "PermitRootLogin not explicitly set (may default to yes)")
	default:
		criticals = append(criticals, "root login is permitted without key restriction")
	}

	if settings["permitemptypasswords"] == "yes" {
		criticals = append(criticals, "PermitEmptyPasswords is enabled")
	}

	if proto := settings["protocol"]; strings.Contains(proto, "1") {
		warnings = append(warnings, "SSH protocol 1 is enabled (deprecated)")
	}

	for _, weak := range []string{"3des", "arcfour", "blowfish"} {
		if strings.Contains(settings["ciphers"], weak) {
			warnings = append(warnings, "weak cipher enabled: "+weak)
		}
	}

	if raw := settings["maxauthtries"]; raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 6 {
			warnings = append(warnings, fmt.Sprintf("MaxAuthTries is %d (consider 3-6)", n))
		}
	}

	if len(criticals) > 0 {
		return []domain.Finding{{
			CheckID:  CheckSSH,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("ssh hardening issues: %d", len(criticals)+len(warnings)),
			Details: append(append(criticals, warnings...),
				"not auto-fixed: editing sshd_config remotely risks lockout"),
		}}
	}
	if len(warnings) > 0 {
		return []domain.Finding{{
			CheckID:  CheckSSH,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("ssh configuration could be hardened: %d issue(s)", len(warnings)),
			Details:  warnings,
		}}
	}

	return []domain.Finding{ok(CheckSSH,
		"ssh configuration is hardened",
		"password authentication disabled",
		"root login restricted to keys")}
}
