// Package checks holds the closed set of security inspectors. Each check is a
// pure function of observed system state, reached only through the narrow
// inspector interfaces in the domain package so the logic is testable with
// fakes. Checks never mutate anything; fixes belong to the remedy package.
package checks

import (
	"fmt"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Inspectors bundles the OS probes the checks read from.
type Inspectors struct {
	Firewall   domain.FirewallInspector
	Processes  domain.ProcessInspector
	Sockets    domain.SocketInspector
	Containers domain.ContainerInspector
	Compose    domain.ComposeScanner
	Certs      domain.CertificateInspector
	SSH        domain.SSHConfigReader
	AuthLog    domain.AuthLogInspector
	Packages   domain.PackageInspector
}

// All constructs the full registry in reporting order. Registration is
// explicit; there is no dynamic discovery.
func All(cfg domain.Config, ins Inspectors) []domain.Check {
	return []domain.Check{
		NewFirewallCheck(cfg, ins.Firewall),
		NewDockerPortsCheck(cfg, ins.Containers, ins.Sockets, ins.Compose),
		NewSSHCheck(cfg, ins.SSH),
		NewFailedLoginsCheck(cfg, ins.AuthLog),
		NewProcessCheck(cfg, ins.Processes),
		NewPermissionsCheck(cfg),
		NewUpdatesCheck(ins.Packages),
		NewTLSCheck(cfg, ins.Certs),
	}
}

// failSoft converts a probe error into the warning finding the check contract
// requires: one broken inspector never blocks the rest of the run.
func failSoft(checkID string, err error) domain.Finding {
	return domain.Finding{
		CheckID:  checkID,
		Severity: domain.SeverityWarning,
		Message:  fmt.Sprintf("check %s could not complete", checkID),
		Details:  []string{err.Error()},
	}
}

func ok(checkID, message string, details ...string) domain.Finding {
	return domain.Finding{
		CheckID:  checkID,
		Severity: domain.SeverityOK,
		Message:  message,
		Details:  details,
	}
}
