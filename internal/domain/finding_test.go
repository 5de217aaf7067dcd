package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityOK < SeverityInfo)
	assert.True(t, SeverityInfo < SeverityWarning)
	assert.True(t, SeverityWarning < SeverityCritical)
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	for _, sev := range []Severity{SeverityOK, SeverityInfo, SeverityWarning, SeverityCritical} {
		data, err := json.Marshal(sev)
		require.NoError(t, err)

		var back Severity
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, sev, back)
	}

	var bad Severity
	assert.Error(t, json.Unmarshal([]byte(`"catastrophic"`), &bad))
}

func TestFingerprintStableAcrossDetails(t *testing.T) {
	a := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled",
		Details: []string{"run one"}}
	b := Finding{CheckID: "firewall", Severity: SeverityCritical, Message: "firewall is disabled",
		Details: []string{"run two, different details"}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintChangesWithSeverity(t *testing.T) {
	a := Finding{CheckID: "ssh", Severity: SeverityWarning, Message: "issue"}
	b := Finding{CheckID: "ssh", Severity: SeverityCritical, Message: "issue"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestOverallStatusIgnoresInfo(t *testing.T) {
	r := RunResult{Findings: []Finding{
		{Severity: SeverityOK},
		{Severity: SeverityInfo},
	}}
	assert.Equal(t, SeverityOK, r.OverallStatus())
	assert.Equal(t, ExitOK, r.ExitCode())
}

func TestExitCodeContract(t *testing.T) {
	tests := []struct {
		name     string
		findings []Finding
		want     int
	}{
		{"empty run", nil, ExitOK},
		{"warnings only", []Finding{{Severity: SeverityWarning}}, ExitWarnings},
		{"critical wins", []Finding{{Severity: SeverityWarning}, {Severity: SeverityCritical}}, ExitCritical},
		{"info only", []Finding{{Severity: SeverityInfo}}, ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunResult{Findings: tt.findings}.ExitCode())
		})
	}
}

func TestAlertsExcludesOK(t *testing.T) {
	r := RunResult{Findings: []Finding{
		{CheckID: "a", Severity: SeverityOK},
		{CheckID: "b", Severity: SeverityInfo},
		{CheckID: "c", Severity: SeverityCritical},
	}}
	alerts := r.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "b", alerts[0].CheckID)
	assert.Equal(t, "c", alerts[1].CheckID)
}
