// Package application wires the domain pipeline: run checks, apply fixes,
// diff against alert state, notify, persist.
package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vpsguard/vpsguard/internal/domain"
	"github.com/vpsguard/vpsguard/internal/domain/remedy"
)

// Deps are the outbound ports the scan needs. Notifier, StateStore, Locker
// and Logger may not be nil; Engine may be nil when remediation is disabled.
type Deps struct {
	Checks   []domain.Check
	Engine   *remedy.Engine
	Notifier domain.Notifier
	State    domain.StateStore
	Locker   domain.RunLocker
	Logger   domain.RunLogger
	Hostname string

	// DryRun reports findings and would-be fixes without notifying or
	// touching the alert state.
	DryRun bool
}

// ScanService runs one full check/fix/notify cycle.
type ScanService struct {
	cfg  domain.Config
	deps Deps
	now  func() time.Time
}

func NewScanService(cfg domain.Config, deps Deps) *ScanService {
	return &ScanService{cfg: cfg, deps: deps, now: time.Now}
}

// Run executes the pipeline once. It returns ErrLockHeld (wrapped) when a
// previous invocation is still running; the run is skipped, not queued.
func (s *ScanService) Run(ctx context.Context) (domain.RunResult, domain.AlertDelta, error) {
	release, err := s.deps.Locker.Acquire()
	if err != nil {
		s.deps.Logger.LogSkipped(err.Error())
		return domain.RunResult{}, domain.AlertDelta{}, err
	}
	defer release()

	started := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Run.Timeout.Std())
	defer cancel()

	findings := s.evaluate(ctx)

	var fixed []domain.RemediationResult
	if s.deps.Engine != nil {
		var failures []domain.Finding
		fixed, failures = s.deps.Engine.Apply(ctx, findings)
		findings = append(findings, failures...)
	}

	result := domain.RunResult{
		Findings:  findings,
		Fixed:     fixed,
		StartedAt: started,
		Duration:  s.now().Sub(started),
	}

	prev := s.deps.State.Load()
	delta, next := domain.Diff(prev, findings, started, s.cfg.Notify.RemindAfter.Std())

	if !s.deps.DryRun {
		if !delta.Empty() || anySucceeded(fixed) {
			summary := s.summarize(result, delta)
			// Delivery failure never fails the run; the findings still land
			// in the run log and the state file.
			_ = s.deps.Notifier.Send(ctx, summary)
		}

		if err := s.deps.State.Save(next); err != nil {
			result.Findings = append(result.Findings, domain.Finding{
				CheckID:  "state",
				Severity: domain.SeverityWarning,
				Message:  "could not persist alert state",
				Details:  []string{err.Error(), "the next run may repeat notifications"},
			})
		}
	}

	for _, f := range result.Findings {
		s.deps.Logger.LogFinding(f)
	}
	s.deps.Logger.LogRun(result)

	return result, delta, nil
}

// evaluate runs every check concurrently, each under its own timeout, and
// returns findings in registration order. A panicking check degrades to a
// warning finding instead of taking the run down.
func (s *ScanService) evaluate(ctx context.Context) []domain.Finding {
	perCheck := make([][]domain.Finding, len(s.deps.Checks))

	var wg sync.WaitGroup
	for i, chk := range s.deps.Checks {
		wg.Add(1)
		go func(i int, chk domain.Check) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					perCheck[i] = []domain.Finding{{
						CheckID:  chk.ID(),
						Severity: domain.SeverityWarning,
						Message:  fmt.Sprintf("check %s could not complete", chk.ID()),
						Details:  []string{fmt.Sprintf("panic: %v", r)},
					}}
				}
			}()

			cctx, cancel := context.WithTimeout(ctx, s.cfg.Run.CheckTimeout.Std())
			defer cancel()
			perCheck[i] = chk.Evaluate(cctx)
		}(i, chk)
	}
	wg.Wait()

	var findings []domain.Finding
	for _, fs := range perCheck {
		findings = append(findings, fs...)
	}
	return findings
}

// summarize flattens the delta into the notifier payload. Only findings the
// delta selected are included; unchanged suppressed alerts stay silent.
func (s *ScanService) summarize(result domain.RunResult, delta domain.AlertDelta) domain.NotificationSummary {
	summary := domain.NotificationSummary{
		Hostname:  s.deps.Hostname,
		Timestamp: result.StartedAt,
		AllOK:     result.OverallStatus() == domain.SeverityOK,
		Resolved:  delta.Resolved,
	}

	notify := make([]domain.Finding, 0, len(delta.New)+len(delta.Escalated)+len(delta.Reminders))
	notify = append(notify, delta.New...)
	notify = append(notify, delta.Escalated...)
	notify = append(notify, delta.Reminders...)
	for _, f := range notify {
		switch f.Severity {
		case domain.SeverityCritical:
			summary.Critical = append(summary.Critical, f)
		case domain.SeverityWarning:
			summary.Warnings = append(summary.Warnings, f)
		case domain.SeverityInfo:
			summary.Info = append(summary.Info, f)
		}
	}

	for _, fix := range result.Fixed {
		if fix.Success {
			summary.Fixed = append(summary.Fixed, fix)
		}
	}

	if len(summary.Critical) > 0 && s.cfg.Notify.MentionOnCritical != "" {
		summary.Mention = s.cfg.Notify.MentionOnCritical
	}
	return summary
}

func anySucceeded(fixed []domain.RemediationResult) bool {
	for _, f := range fixed {
		if f.Success {
			return true
		}
	}
	return false
}
