package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var diffNow = time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)

func TestDiffNewFinding(t *testing.T) {
	f := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled"}

	delta, next := Diff(NewAlertState(), []Finding{f}, diffNow, 24*time.Hour)

	require.Len(t, delta.New, 1)
	assert.Empty(t, delta.Escalated)
	assert.Empty(t, delta.Resolved)

	rec := next.Records["firewall"]
	assert.Equal(t, f.Fingerprint(), rec.Fingerprint)
	assert.Equal(t, diffNow, rec.FirstSeen)
	assert.Equal(t, diffNow, rec.LastNotified)
}

func TestDiffUnchangedFindingIsSuppressed(t *testing.T) {
	f := Finding{CheckID: "ssh", Severity: SeverityWarning, Message: "weak cipher enabled"}

	_, state := Diff(NewAlertState(), []Finding{f}, diffNow, 24*time.Hour)
	delta, next := Diff(state, []Finding{f}, diffNow.Add(time.Hour), 24*time.Hour)

	assert.True(t, delta.Empty())
	// LastNotified stays at the original notification time.
	assert.Equal(t, diffNow, next.Records["ssh"].LastNotified)
}

func TestDiffEscalation(t *testing.T) {
	warn := Finding{CheckID: "ssh", Severity: SeverityWarning, Message: "weak cipher enabled"}
	crit := Finding{CheckID: "ssh", Severity: SeverityCritical, Message: "root login is permitted"}

	_, state := Diff(NewAlertState(), []Finding{warn}, diffNow, 24*time.Hour)
	delta, next := Diff(state, []Finding{crit}, diffNow.Add(time.Hour), 24*time.Hour)

	require.Len(t, delta.Escalated, 1)
	assert.Equal(t, SeverityCritical, next.Records["ssh"].Severity)
	assert.Equal(t, diffNow, next.Records["ssh"].FirstSeen, "escalation keeps the original first-seen time")
	assert.Equal(t, diffNow.Add(time.Hour), next.Records["ssh"].LastNotified)
}

func TestDiffSeverityDropIsNotEscalation(t *testing.T) {
	crit := Finding{CheckID: "ssh", Severity: SeverityCritical, Message: "root login is permitted"}
	warn := Finding{CheckID: "ssh", Severity: SeverityWarning, Message: "weak cipher enabled"}

	_, state := Diff(NewAlertState(), []Finding{crit}, diffNow, 24*time.Hour)
	delta, next := Diff(state, []Finding{warn}, diffNow.Add(time.Hour), 24*time.Hour)

	assert.True(t, delta.Empty())
	assert.Equal(t, SeverityWarning, next.Records["ssh"].Severity)
}

func TestDiffReminder(t *testing.T) {
	f := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled"}

	_, state := Diff(NewAlertState(), []Finding{f}, diffNow, 24*time.Hour)

	delta, _ := Diff(state, []Finding{f}, diffNow.Add(23*time.Hour), 24*time.Hour)
	assert.True(t, delta.Empty())

	delta, next := Diff(state, []Finding{f}, diffNow.Add(25*time.Hour), 24*time.Hour)
	require.Len(t, delta.Reminders, 1)
	assert.Equal(t, diffNow.Add(25*time.Hour), next.Records["firewall"].LastNotified)
}

func TestDiffReminderDisabled(t *testing.T) {
	f := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled"}

	_, state := Diff(NewAlertState(), []Finding{f}, diffNow, 0)
	delta, _ := Diff(state, []Finding{f}, diffNow.Add(1000*time.Hour), 0)
	assert.True(t, delta.Empty())
}

func TestDiffResolved(t *testing.T) {
	f := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled"}

	_, state := Diff(NewAlertState(), []Finding{f}, diffNow, 24*time.Hour)
	delta, next := Diff(state, nil, diffNow.Add(time.Hour), 24*time.Hour)

	require.Len(t, delta.Resolved, 1)
	assert.Equal(t, "firewall is disabled", delta.Resolved[0].Message)
	assert.NotContains(t, next.Records, "firewall")

	// Gone from state, so the next run has nothing to resolve again.
	delta, _ = Diff(next, nil, diffNow.Add(2*time.Hour), 24*time.Hour)
	assert.True(t, delta.Empty())
}

func TestDiffOneAlertPerCheckKeepsWorst(t *testing.T) {
	findings := []Finding{
		{CheckID: "ssh", Severity: SeverityWarning, Message: "weak cipher enabled"},
		{CheckID: "ssh", Severity: SeverityCritical, Message: "root login is permitted"},
	}

	delta, next := Diff(NewAlertState(), findings, diffNow, 24*time.Hour)

	require.Len(t, delta.New, 1)
	assert.Equal(t, SeverityCritical, delta.New[0].Severity)
	assert.Len(t, next.Records, 1)
}

func TestDiffIgnoresOKFindings(t *testing.T) {
	delta, next := Diff(NewAlertState(), []Finding{
		{CheckID: "firewall", Severity: SeverityOK, Message: "firewall active with expected rules"},
	}, diffNow, 24*time.Hour)

	assert.True(t, delta.Empty())
	assert.Empty(t, next.Records)
}
