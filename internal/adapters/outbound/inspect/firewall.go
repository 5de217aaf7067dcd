package inspect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vpsguard/vpsguard/internal/domain"
)

var ufwRulePattern = regexp.MustCompile(`^(\d+)(?:/tcp|/udp)?`)

// UFW reads and drives the ufw frontend. It implements both the firewall
// inspector and the remedy Firewaller.
type UFW struct {
	run     Runner
	sshPort int
}

func NewUFW(run Runner, sshPort int) *UFW {
	if sshPort <= 0 {
		sshPort = 22
	}
	return &UFW{run: run, sshPort: sshPort}
}

func (u *UFW) State(ctx context.Context) (domain.FirewallState, error) {
	if _, err := u.run.LookPath("ufw"); err != nil {
		return domain.FirewallState{Installed: false}, nil
	}

	out, err := u.run.Run(ctx, "ufw", "status", "verbose")
	if err != nil {
		return domain.FirewallState{}, fmt.Errorf("ufw status: %w", err)
	}

	state := domain.FirewallState{Installed: true}
	status := string(out)
	state.Active = strings.Contains(status, "Status: active")
	state.AllowedPorts = parseUFWRules(status)
	return state, nil
}

// EnsureEnabled allows the given ports and enables ufw. SSH is allowed first,
// unconditionally: enabling a firewall that drops the operator's own session
// is the one failure mode this tool must never have.
func (u *UFW) EnsureEnabled(ctx context.Context, allowedPorts []int) error {
	if _, err := u.run.Run(ctx, "ufw", "allow", fmt.Sprintf("%d/tcp", u.sshPort)); err != nil {
		return fmt.Errorf("allowing ssh before enable: %w", err)
	}

	for _, port := range allowedPorts {
		if port == u.sshPort {
			continue
		}
		if _, err := u.run.Run(ctx, "ufw", "allow", fmt.Sprintf("%d/tcp", port)); err != nil {
			return fmt.Errorf("allowing port %d: %w", port, err)
		}
	}

	if _, err := u.run.Run(ctx, "ufw", "--force", "enable"); err != nil {
		return fmt.Errorf("enabling ufw: %w", err)
	}

	out, err := u.run.Run(ctx, "ufw", "status")
	if err != nil {
		return fmt.Errorf("verifying ufw: %w", err)
	}
	if !strings.Contains(string(out), "Status: active") {
		return fmt.Errorf("ufw reports inactive after enable")
	}
	return nil
}

// parseUFWRules extracts allowed port numbers from `ufw status` output.
// Lines look like "22/tcp  ALLOW IN  Anywhere"; (v6) duplicates collapse.
func parseUFWRules(status string) []int {
	set := make(map[int]bool)
	for _, line := range strings.Split(status, "\n") {
		if !strings.Contains(line, "ALLOW") {
			continue
		}
		m := ufwRulePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if port, err := strconv.Atoi(m[1]); err == nil {
			set[port] = true
		}
	}

	ports := make([]int, 0, len(set))
	for p := range set {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}
