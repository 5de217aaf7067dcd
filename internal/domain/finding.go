package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Severity classifies a finding. Info findings are reported but never affect
// the exit code and are never remediated.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "ok":
		return SeverityOK, nil
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityOK, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sev, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// FixAction names an automated remediation. Only the two safe, idempotent
// actions exist; everything else is alert-only.
type FixAction string

const (
	FixEnableFirewall FixAction = "enable_firewall"
	FixPermissions    FixAction = "fix_permissions"
)

// Finding is one check's verdict about one security dimension in one run.
// Immutable once produced.
type Finding struct {
	CheckID     string    `json:"check_id"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Details     []string  `json:"details,omitempty"`
	AutoFixable bool      `json:"auto_fixable"`
	FixAction   FixAction `json:"fix_action,omitempty"`

	// Remediation inputs carried from the check that produced the finding.
	FilePaths []string `json:"file_paths,omitempty"`
	Ports     []int    `json:"ports,omitempty"`
}

// Fingerprint identifies the finding across runs for alert deduplication.
// Two findings with the same check, severity and message are the same alert.
func (f Finding) Fingerprint() string {
	h := sha256.Sum256([]byte(f.CheckID + "|" + f.Severity.String() + "|" + f.Message))
	return hex.EncodeToString(h[:8])
}

// RemediationResult records one applied (or attempted) fix.
type RemediationResult struct {
	CheckID string   `json:"check_id"`
	Action  string   `json:"action"`
	Success bool     `json:"success"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// RunResult aggregates everything one invocation produced.
type RunResult struct {
	Findings  []Finding           `json:"findings"`
	Fixed     []RemediationResult `json:"fixed,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
}

// OverallStatus is the maximum severity across findings, with info counting
// as ok. An empty run is ok.
func (r RunResult) OverallStatus() Severity {
	status := SeverityOK
	for _, f := range r.Findings {
		if f.Severity == SeverityInfo {
			continue
		}
		if f.Severity > status {
			status = f.Severity
		}
	}
	return status
}

// Exit codes consumed by the scheduling layer. Warnings are a successful
// scheduled run; only criticals mark the run red.
const (
	ExitOK       = 0
	ExitWarnings = 1
	ExitCritical = 2
	ExitConfig   = 3
	ExitSkipped  = 4
)

// ExitCode maps the run's overall status to the scheduler contract.
func (r RunResult) ExitCode() int {
	switch r.OverallStatus() {
	case SeverityCritical:
		return ExitCritical
	case SeverityWarning:
		return ExitWarnings
	default:
		return ExitOK
	}
}

// Alerts returns the findings worth reporting (anything above ok).
func (r RunResult) Alerts() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity != SeverityOK {
			out = append(out, f)
		}
	}
	return out
}
