package checks

import (
	"context"
	"fmt"
	"sort"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckFirewall = "firewall"

// FirewallCheck verifies the host firewall is active and its rule set matches
// the declared configuration.
type FirewallCheck struct {
	cfg domain.Config
	fw  domain.FirewallInspector
}

func NewFirewallCheck(cfg domain.Config, fw domain.FirewallInspector) *FirewallCheck {
	return &FirewallCheck{cfg: cfg, fw: fw}
}

func (c *FirewallCheck) ID() string { return CheckFirewall }

func (c *FirewallCheck) Evaluate(ctx context.Context) []domain.Finding {
	state, err := c.fw.State(ctx)
	if err != nil {
		return []domain.Finding{failSoft(CheckFirewall, err)}
	}

	if !state.Installed {
		return []domain.Finding{{
			CheckID:  CheckFirewall,
			Severity: domain.SeverityCritical,
			Message:  "firewall is not installed",
			Details: []string{
				"the server has no firewall protection",
				"install ufw before the next scheduled scan",
			},
		}}
	}

	if !state.Active {
		return []domain.Finding{{
			CheckID:     CheckFirewall,
			Severity:    domain.SeverityCritical,
			Message:     "firewall is disabled",
			Details:     []string{"all ports are potentially exposed to the internet"},
			AutoFixable: true,
			FixAction:   domain.FixEnableFirewall,
			Ports:       c.expectedPorts(),
		}}
	}

	allowed := make(map[int]bool, len(state.AllowedPorts))
	for _, p := range state.AllowedPorts {
		allowed[p] = true
	}

	// Dangerous database ports allowed through the firewall are never fixed
	// automatically: deleting rules can cut off something that depends on them.
	var exposed []int
	for _, p := range c.cfg.DangerousPorts() {
		if allowed[p] {
			exposed = append(exposed, p)
		}
	}
	if len(exposed) > 0 {
		sort.Ints(exposed)
		return []domain.Finding{{
			CheckID:  CheckFirewall,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("firewall allows database ports %v", exposed),
			Details: []string{
				"database ports must never be reachable from outside",
				"remove each rule with: ufw delete allow <port>",
			},
			Ports: exposed,
		}}
	}

	expected := make(map[int]bool)
	for _, p := range c.expectedPorts() {
		expected[p] = true
	}

	var unexpected, missing []int
	for p := range allowed {
		if !expected[p] {
			unexpected = append(unexpected, p)
		}
	}
	for p := range expected {
		if !allowed[p] {
			missing = append(missing, p)
		}
	}
	sort.Ints(unexpected)
	sort.Ints(missing)

	var findings []domain.Finding
	if len(unexpected) > 0 {
		findings = append(findings, domain.Finding{
			CheckID:  CheckFirewall,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("firewall allows %d port(s) not in configuration: %v", len(unexpected), unexpected),
			Details:  []string{"review these rules and remove any that are not needed"},
			Ports:    unexpected,
		})
	}
	if len(missing) > 0 {
		findings = append(findings, domain.Finding{
			CheckID:     CheckFirewall,
			Severity:    domain.SeverityWarning,
			Message:     fmt.Sprintf("configured port(s) missing from firewall rules: %v", missing),
			AutoFixable: true,
			FixAction:   domain.FixEnableFirewall,
			Ports:       missing,
		})
	}

	if len(findings) == 0 {
		findings = append(findings, ok(CheckFirewall,
			"firewall active with expected rules",
			fmt.Sprintf("allowed ports: %v", sortedKeys(allowed))))
	}
	return findings
}

// expectedPorts is the declared rule set: the global allow list, every
// project's allowed ports, and always SSH.
func (c *FirewallCheck) expectedPorts() []int {
	set := map[int]bool{c.cfg.SSH.Port: true}
	for _, p := range c.cfg.Firewall.AllowedPorts {
		set[p] = true
	}
	for _, proj := range c.cfg.Projects {
		for _, p := range proj.AllowedPorts {
			set[p] = true
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
