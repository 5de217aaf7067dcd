package inspect

import (
	"context"
	"strings"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Apt reads pending updates from `apt list --upgradable`. The scan never
// runs `apt update` itself; the daily apt timer keeps the index fresh.
type Apt struct {
	run Runner
}

func NewApt(run Runner) *Apt {
	return &Apt{run: run}
}

func (a *Apt) PendingUpdates(ctx context.Context) (domain.PendingUpdates, error) {
	out, err := a.run.Run(ctx, "apt", "list", "--upgradable")
	if err != nil {
		return domain.PendingUpdates{}, err
	}
	return parseAptUpgradable(string(out)), nil
}

// parseAptUpgradable classifies lines like
// "openssl/jammy-security 3.0.2-0ubuntu1.10 amd64 [upgradable from: ...]".
func parseAptUpgradable(out string) domain.PendingUpdates {
	var pending domain.PendingUpdates
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Listing") || !strings.Contains(line, "/") {
			continue
		}

		name := line[:strings.Index(line, "/")]
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "security") || strings.Contains(line, "CVE"):
			pending.Security = append(pending.Security, name)
		case strings.HasPrefix(name, "linux-image") || strings.HasPrefix(name, "linux-headers"):
			pending.Kernel = append(pending.Kernel, name)
		default:
			pending.Other = append(pending.Other, name)
		}
	}
	return pending
}
