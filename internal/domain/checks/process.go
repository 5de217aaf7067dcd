package checks

import (
	"context"
	"fmt"
	"strings"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckProcesses = "processes"

// legitimateHighCPU names workloads expected to burn CPU; they are excluded
// from the anomalous-CPU heuristic, not from the miner-signature match.
var legitimateHighCPU = []string{
	"dockerd", "containerd", "mysqld", "postgres", "nginx", "apache2", "node", "python",
}

// ProcessCheck looks for known miner/backdoor signatures and anomalous
// sustained CPU. Alert-only: killing processes automatically is how you take
// down production by accident.
type ProcessCheck struct {
	cfg   domain.Config
	procs domain.ProcessInspector
}

func NewProcessCheck(cfg domain.Config, procs domain.ProcessInspector) *ProcessCheck {
	return &ProcessCheck{cfg: cfg, procs: procs}
}

func (c *ProcessCheck) ID() string { return CheckProcesses }

func (c *ProcessCheck) Evaluate(ctx context.Context) []domain.Finding {
	procs, err := c.procs.Processes(ctx)
	if err != nil {
		return []domain.Finding{failSoft(CheckProcesses, err)}
	}

	var miners, hot []string
	for _, p := range procs {
		haystack := strings.ToLower(p.Name + " " + p.Cmdline)

		matched := false
		for _, sig := range c.cfg.Process.SuspiciousNames {
			if sig != "" && strings.Contains(haystack, strings.ToLower(sig)) {
				miners = append(miners, fmt.Sprintf("%s (pid %d, user %s, %.0f%% cpu) matches signature %q",
					p.Name, p.PID, p.User, p.CPUPercent, sig))
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if p.CPUPercent >= c.cfg.Process.CPUThreshold && !isLegitimateHighCPU(haystack) {
			hot = append(hot, fmt.Sprintf("%s (pid %d, user %s) sustained at %.0f%% cpu",
				p.Name, p.PID, p.User, p.CPUPercent))
		}
	}

	if len(miners) > 0 {
		return []domain.Finding{{
			CheckID:  CheckProcesses,
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%d process(es) match known miner signatures", len(miners)),
			Details: append(append(miners, hot...),
				"not auto-fixed: investigate before killing anything"),
		}}
	}
	if len(hot) > 0 {
		return []domain.Finding{{
			CheckID:  CheckProcesses,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("%d process(es) with anomalous sustained cpu", len(hot)),
			Details:  hot,
		}}
	}

	return []domain.Finding{ok(CheckProcesses,
		"no suspicious processes",
		fmt.Sprintf("%d processes examined", len(procs)))}
}

func isLegitimateHighCPU(haystack string) bool {
	for _, legit := range legitimateHighCPU {
		if strings.Contains(haystack, legit) {
			return true
		}
	}
	return false
}
