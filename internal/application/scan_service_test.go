package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpsguard/vpsguard/internal/domain"
	"github.com/vpsguard/vpsguard/internal/domain/remedy"
)

type staticCheck struct {
	id       string
	findings []domain.Finding
	panics   bool
}

func (c staticCheck) ID() string { return c.id }

func (c staticCheck) Evaluate(context.Context) []domain.Finding {
	if c.panics {
		panic("boom")
	}
	return c.findings
}

type recordingNotifier struct {
	sent []domain.NotificationSummary
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, s domain.NotificationSummary) error {
	n.sent = append(n.sent, s)
	return n.err
}

func (n *recordingNotifier) SendTest(context.Context) error { return n.err }

type memoryState struct {
	state   domain.AlertState
	saveErr error
	saves   int
}

func (m *memoryState) Load() domain.AlertState { return m.state }

func (m *memoryState) Save(s domain.AlertState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = s
	m.saves++
	return nil
}

type fakeLocker struct {
	err      error
	released bool
}

func (l *fakeLocker) Acquire() (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released = true }, nil
}

type nopLogger struct {
	skipped  []string
	findings int
	runs     int
}

func (l *nopLogger) LogFinding(domain.Finding) { l.findings++ }
func (l *nopLogger) LogRun(domain.RunResult)   { l.runs++ }
func (l *nopLogger) LogSkipped(reason string)  { l.skipped = append(l.skipped, reason) }

func testConfig() domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Run.Timeout = domain.Duration(5 * time.Second)
	cfg.Run.CheckTimeout = domain.Duration(time.Second)
	return cfg
}

func newService(cfg domain.Config, deps Deps) (*ScanService, *recordingNotifier, *memoryState, *nopLogger) {
	notifier := &recordingNotifier{}
	state := &memoryState{state: domain.NewAlertState()}
	logger := &nopLogger{}
	if deps.Notifier == nil {
		deps.Notifier = notifier
	}
	if deps.State == nil {
		deps.State = state
	}
	if deps.Locker == nil {
		deps.Locker = &fakeLocker{}
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	deps.Hostname = "vps-test"
	return NewScanService(cfg, deps), notifier, state, logger
}

func critical(checkID, msg string) domain.Finding {
	return domain.Finding{CheckID: checkID, Severity: domain.SeverityCritical, Message: msg}
}

func okFinding(checkID string) domain.Finding {
	return domain.Finding{CheckID: checkID, Severity: domain.SeverityOK, Message: "fine"}
}

func TestRunCleanHostStaysSilent(t *testing.T) {
	svc, notifier, state, logger := newService(testConfig(), Deps{
		Checks: []domain.Check{
			staticCheck{id: "firewall", findings: []domain.Finding{okFinding("firewall")}},
			staticCheck{id: "ssh", findings: []domain.Finding{okFinding("ssh")}},
		},
	})

	result, delta, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ExitOK, result.ExitCode())
	assert.True(t, delta.Empty())
	assert.Empty(t, notifier.sent, "nothing new, nothing to say")
	assert.Equal(t, 1, state.saves)
	assert.Equal(t, 1, logger.runs)
}

func TestRunNewCriticalNotifiesOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.MentionOnCritical = "@ops"
	finding := critical("firewall", "firewall is disabled")

	state := &memoryState{state: domain.NewAlertState()}
	svc, notifier, _, _ := newService(cfg, Deps{
		Checks: []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{finding}}},
		State:  state,
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ExitCritical, result.ExitCode())

	require.Len(t, notifier.sent, 1)
	require.Len(t, notifier.sent[0].Critical, 1)
	assert.Equal(t, "@ops", notifier.sent[0].Mention)
	assert.Equal(t, "vps-test", notifier.sent[0].Hostname)

	// Same finding on the next run: still critical exit, but no new message.
	result, delta, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ExitCritical, result.ExitCode())
	assert.True(t, delta.Empty())
	assert.Len(t, notifier.sent, 1)
}

func TestRunResolvedNoticeAfterRecovery(t *testing.T) {
	state := &memoryState{state: domain.NewAlertState()}
	broken := []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{critical("firewall", "firewall is disabled")}}}
	healthy := []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{okFinding("firewall")}}}

	svc, _, _, _ := newService(testConfig(), Deps{Checks: broken, State: state})
	_, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	svc, notifier, _, _ := newService(testConfig(), Deps{Checks: healthy, State: state})
	result, delta, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ExitOK, result.ExitCode())
	require.Len(t, delta.Resolved, 1)
	require.Len(t, notifier.sent, 1)
	assert.True(t, notifier.sent[0].AllOK)
	assert.Len(t, notifier.sent[0].Resolved, 1)

	// Recovery is announced exactly once.
	_, delta, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, delta.Empty())
	assert.Len(t, notifier.sent, 1)
}

func TestRunReminderAfterInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.RemindAfter = domain.Duration(24 * time.Hour)

	state := &memoryState{state: domain.NewAlertState()}
	svc, notifier, _, _ := newService(cfg, Deps{
		Checks: []domain.Check{staticCheck{id: "ssh", findings: []domain.Finding{critical("ssh", "root login permitted")}}},
		State:  state,
	})

	base := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	_, _, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	_, delta, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, delta.Empty())

	svc.now = func() time.Time { return base.Add(25 * time.Hour) }
	_, delta, err = svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, delta.Reminders, 1)
	assert.Len(t, notifier.sent, 2)
}

func TestRunSkippedWhenLockHeld(t *testing.T) {
	svc, notifier, _, logger := newService(testConfig(), Deps{
		Checks: []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{okFinding("firewall")}}},
		Locker: &fakeLocker{err: fmt.Errorf("acquire: %w", domain.ErrLockHeld)},
	})

	_, _, err := svc.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Empty(t, notifier.sent)
	assert.Len(t, logger.skipped, 1)
}

func TestRunPanickingCheckDegradesToWarning(t *testing.T) {
	svc, _, _, _ := newService(testConfig(), Deps{
		Checks: []domain.Check{
			staticCheck{id: "processes", panics: true},
			staticCheck{id: "ssh", findings: []domain.Finding{okFinding("ssh")}},
		},
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Findings, 2)
	assert.Equal(t, domain.SeverityWarning, result.Findings[0].Severity)
	assert.Contains(t, result.Findings[0].Message, "could not complete")
	assert.Equal(t, domain.ExitWarnings, result.ExitCode())
}

func TestRunSuccessfulFixIsNotified(t *testing.T) {
	dir := t.TempDir()
	engine := remedy.NewEngine(
		domain.RemediationConfig{Enabled: true, JournalDir: dir},
		enableAlways{},
		remedy.NewJournal(dir),
	)

	svc, notifier, _, _ := newService(testConfig(), Deps{
		Checks: []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{{
			CheckID:     "firewall",
			Severity:    domain.SeverityCritical,
			Message:     "firewall is disabled",
			AutoFixable: true,
			FixAction:   domain.FixEnableFirewall,
			Ports:       []int{22, 443},
		}}}},
		Engine: engine,
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Fixed, 1)
	assert.True(t, result.Fixed[0].Success)
	require.Len(t, notifier.sent, 1)
	assert.Len(t, notifier.sent[0].Fixed, 1)
}

func TestRunFailedFixBecomesCritical(t *testing.T) {
	dir := t.TempDir()
	engine := remedy.NewEngine(
		domain.RemediationConfig{Enabled: true, JournalDir: dir},
		enableNever{},
		remedy.NewJournal(dir),
	)

	svc, notifier, _, _ := newService(testConfig(), Deps{
		Checks: []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{{
			CheckID:     "firewall",
			Severity:    domain.SeverityCritical,
			Message:     "firewall is disabled",
			AutoFixable: true,
			FixAction:   domain.FixEnableFirewall,
		}}}},
		Engine: engine,
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ExitCritical, result.ExitCode())
	require.Len(t, notifier.sent, 1)
	found := false
	for _, f := range notifier.sent[0].Critical {
		if f.Message == "automatic remediation failed: enable_firewall" {
			found = true
		}
	}
	assert.True(t, found, "the failed fix must surface as its own critical alert")
}

func TestRunNotifierFailureDoesNotFailRun(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook: 500")}
	svc, _, state, _ := newService(testConfig(), Deps{
		Checks:   []domain.Check{staticCheck{id: "ssh", findings: []domain.Finding{critical("ssh", "root login permitted")}}},
		Notifier: notifier,
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ExitCritical, result.ExitCode())
	assert.Equal(t, 1, state.saves)
}

func TestRunStateSaveFailureAddsWarning(t *testing.T) {
	svc, _, _, _ := newService(testConfig(), Deps{
		Checks: []domain.Check{staticCheck{id: "ssh", findings: []domain.Finding{okFinding("ssh")}}},
		State:  &memoryState{state: domain.NewAlertState(), saveErr: errors.New("disk full")},
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	var warned bool
	for _, f := range result.Findings {
		if f.CheckID == "state" && f.Severity == domain.SeverityWarning {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunDryRunSkipsNotificationAndState(t *testing.T) {
	svc, notifier, state, _ := newService(testConfig(), Deps{
		Checks: []domain.Check{staticCheck{id: "firewall", findings: []domain.Finding{critical("firewall", "ufw is inactive")}}},
		DryRun: true,
	})

	result, _, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.ExitCritical, result.ExitCode())
	assert.Empty(t, notifier.sent)
	assert.Zero(t, state.saves, "a dry run must not advance the alert state")
}

type enableAlways struct{}

func (enableAlways) EnsureEnabled(context.Context, []int) error { return nil }

type enableNever struct{}

func (enableNever) EnsureEnabled(context.Context, []int) error {
	return errors.New("ufw not found")
}
