// Package remedy applies the small set of automatic fixes. Only idempotent
// actions that cannot lock an operator out are automated; everything else
// stays alert-only and is handled by a human.
package remedy

import (
	"context"
	"fmt"
	"os"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// Firewaller enables the host firewall with an explicit allow list.
type Firewaller interface {
	EnsureEnabled(ctx context.Context, allowedPorts []int) error
}

// Engine walks the auto-fixable findings of a run and applies their fixes.
// Each fix is journaled before it is applied so an operator can undo it.
type Engine struct {
	cfg     domain.RemediationConfig
	fw      Firewaller
	journal *Journal
	dryRun  bool

	chmod func(path string, mode os.FileMode) error
	stat  func(path string) (os.FileInfo, error)
}

func NewEngine(cfg domain.RemediationConfig, fw Firewaller, journal *Journal) *Engine {
	return &Engine{
		cfg:     cfg,
		fw:      fw,
		journal: journal,
		chmod:   os.Chmod,
		stat:    os.Stat,
	}
}

// DryRun makes Apply report what it would do without touching anything.
func (e *Engine) DryRun() *Engine {
	e.dryRun = true
	return e
}

// Apply runs every applicable fix. It returns the results of the attempts
// plus extra findings for the attempts that failed, so a broken fix shows up
// in alerts as critical instead of vanishing.
func (e *Engine) Apply(ctx context.Context, findings []domain.Finding) ([]domain.RemediationResult, []domain.Finding) {
	if !e.cfg.Enabled && !e.dryRun {
		return nil, nil
	}

	var results []domain.RemediationResult
	var failures []domain.Finding

	for _, f := range findings {
		if !f.AutoFixable || f.Severity < domain.SeverityWarning {
			continue
		}

		var res domain.RemediationResult
		switch f.FixAction {
		case domain.FixEnableFirewall:
			res = e.enableFirewall(ctx, f)
		case domain.FixPermissions:
			res = e.fixPermissions(f)
		default:
			continue
		}

		results = append(results, res)
		if !res.Success {
			failures = append(failures, domain.Finding{
				CheckID:  f.CheckID,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("automatic remediation failed: %s", res.Action),
				Details:  []string{res.Error, "manual intervention required"},
			})
		}
	}
	return results, failures
}

func (e *Engine) enableFirewall(ctx context.Context, f domain.Finding) domain.RemediationResult {
	res := domain.RemediationResult{
		CheckID: f.CheckID,
		Action:  string(domain.FixEnableFirewall),
	}

	if e.dryRun {
		res.Success = true
		res.Details = []string{fmt.Sprintf("would enable firewall allowing ports %v", f.Ports)}
		return res
	}

	e.journal.Record(JournalEntry{
		Action: string(domain.FixEnableFirewall),
		Target: "ufw",
		Prior:  "inactive",
	})

	if err := e.fw.EnsureEnabled(ctx, f.Ports); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Details = []string{fmt.Sprintf("firewall enabled, allowed ports %v", f.Ports)}
	return res
}

func (e *Engine) fixPermissions(f domain.Finding) domain.RemediationResult {
	res := domain.RemediationResult{
		CheckID: f.CheckID,
		Action:  string(domain.FixPermissions),
	}

	if e.dryRun {
		res.Success = true
		for _, path := range f.FilePaths {
			res.Details = append(res.Details, fmt.Sprintf("would chmod 600 %s", path))
		}
		return res
	}

	// Re-stat instead of trusting the finding: the file may have changed
	// since the check ran, and the journal must hold the true prior mode.
	for _, path := range f.FilePaths {
		info, err := e.stat(path)
		if err != nil {
			res.Error = fmt.Sprintf("%s: %v", path, err)
			return res
		}
		prior := info.Mode().Perm()
		if prior&0o077 == 0 {
			res.Details = append(res.Details, fmt.Sprintf("%s already owner-only", path))
			continue
		}

		e.journal.Record(JournalEntry{
			Action: string(domain.FixPermissions),
			Target: path,
			Prior:  fmt.Sprintf("%03o", prior),
		})
		if err := e.chmod(path, 0o600); err != nil {
			res.Error = fmt.Sprintf("%s: %v", path, err)
			return res
		}
		res.Details = append(res.Details, fmt.Sprintf("%s: %03o -> 600", path, prior))
	}
	res.Success = true
	return res
}
