package remedy

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpsguard/vpsguard/internal/domain"
)

type fakeFirewaller struct {
	enabledWith []int
	calls       int
	err         error
}

func (f *fakeFirewaller) EnsureEnabled(_ context.Context, ports []int) error {
	f.calls++
	f.enabledWith = ports
	return f.err
}

func enabledCfg(t *testing.T) domain.RemediationConfig {
	return domain.RemediationConfig{Enabled: true, JournalDir: t.TempDir()}
}

func TestEngineSkipsWhenDisabled(t *testing.T) {
	fw := &fakeFirewaller{}
	engine := NewEngine(domain.RemediationConfig{Enabled: false}, fw, nil)

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{{
		CheckID:     "firewall",
		Severity:    domain.SeverityCritical,
		AutoFixable: true,
		FixAction:   domain.FixEnableFirewall,
		Ports:       []int{22, 80},
	}})

	assert.Empty(t, fixed)
	assert.Empty(t, failures)
	assert.Zero(t, fw.calls)
}

func TestEngineEnablesFirewall(t *testing.T) {
	cfg := enabledCfg(t)
	fw := &fakeFirewaller{}
	engine := NewEngine(cfg, fw, NewJournal(cfg.JournalDir))

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{{
		CheckID:     "firewall",
		Severity:    domain.SeverityCritical,
		AutoFixable: true,
		FixAction:   domain.FixEnableFirewall,
		Ports:       []int{22, 80, 443},
	}})

	require.Len(t, fixed, 1)
	assert.True(t, fixed[0].Success)
	assert.Empty(t, failures)
	assert.Equal(t, []int{22, 80, 443}, fw.enabledWith)
}

func TestEngineReportsFirewallFailure(t *testing.T) {
	cfg := enabledCfg(t)
	fw := &fakeFirewaller{err: errors.New("ufw: permission denied")}
	engine := NewEngine(cfg, fw, NewJournal(cfg.JournalDir))

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{{
		CheckID:     "firewall",
		Severity:    domain.SeverityCritical,
		AutoFixable: true,
		FixAction:   domain.FixEnableFirewall,
	}})

	require.Len(t, fixed, 1)
	assert.False(t, fixed[0].Success)
	require.Len(t, failures, 1)
	assert.Equal(t, domain.SeverityCritical, failures[0].Severity)
	assert.Contains(t, failures[0].Message, "remediation failed")
}

func TestEngineFixesPermissions(t *testing.T) {
	cfg := enabledCfg(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECRET=1\n"), 0o644))

	journal := NewJournal(cfg.JournalDir)
	engine := NewEngine(cfg, &fakeFirewaller{}, journal)

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{{
		CheckID:     "file_permissions",
		Severity:    domain.SeverityWarning,
		AutoFixable: true,
		FixAction:   domain.FixPermissions,
		FilePaths:   []string{path},
	}})

	require.Len(t, fixed, 1)
	assert.True(t, fixed[0].Success)
	assert.Empty(t, failures)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The journal holds the pre-fix mode for rollback.
	entries := journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].Target)
	assert.Equal(t, "644", entries[0].Prior)
}

func TestEnginePermissionsIdempotent(t *testing.T) {
	cfg := enabledCfg(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECRET=1\n"), 0o600))

	journal := NewJournal(cfg.JournalDir)
	engine := NewEngine(cfg, &fakeFirewaller{}, journal)

	fixed, _ := engine.Apply(context.Background(), []domain.Finding{{
		CheckID:     "file_permissions",
		Severity:    domain.SeverityWarning,
		AutoFixable: true,
		FixAction:   domain.FixPermissions,
		FilePaths:   []string{path},
	}})

	require.Len(t, fixed, 1)
	assert.True(t, fixed[0].Success)
	assert.Empty(t, journal.Entries(), "already-safe file must not be journaled")
}

func TestEngineDryRunTouchesNothing(t *testing.T) {
	cfg := enabledCfg(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SECRET=1\n"), 0o644))

	fw := &fakeFirewaller{}
	journal := NewJournal(cfg.JournalDir)
	engine := NewEngine(cfg, fw, journal).DryRun()

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{
		{
			CheckID:     "firewall",
			Severity:    domain.SeverityCritical,
			AutoFixable: true,
			FixAction:   domain.FixEnableFirewall,
			Ports:       []int{22},
		},
		{
			CheckID:     "file_permissions",
			Severity:    domain.SeverityWarning,
			AutoFixable: true,
			FixAction:   domain.FixPermissions,
			FilePaths:   []string{path},
		},
	})

	require.Len(t, fixed, 2)
	assert.Empty(t, failures)
	assert.Zero(t, fw.calls)
	assert.Empty(t, journal.Entries())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "dry run must not chmod")
}

func TestEngineIgnoresNonFixableAndInfo(t *testing.T) {
	cfg := enabledCfg(t)
	engine := NewEngine(cfg, &fakeFirewaller{}, NewJournal(cfg.JournalDir))

	fixed, failures := engine.Apply(context.Background(), []domain.Finding{
		{CheckID: "ssh", Severity: domain.SeverityCritical},
		{CheckID: "package_updates", Severity: domain.SeverityInfo, AutoFixable: true, FixAction: domain.FixPermissions},
	})

	assert.Empty(t, fixed)
	assert.Empty(t, failures)
}

func TestJournalWritesSessionFile(t *testing.T) {
	dir := t.TempDir()
	journal := NewJournal(dir)
	journal.Record(JournalEntry{Action: "fix_permissions", Target: "/opt/shop/.env", Prior: "644"})
	journal.Record(JournalEntry{Action: "enable_firewall", Target: "ufw", Prior: "inactive"})

	path := journal.Path()
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []JournalEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "/opt/shop/.env", entries[0].Target)
	assert.False(t, entries[0].Time.IsZero())
}

func TestJournalNoFileWithoutEntries(t *testing.T) {
	journal := NewJournal(t.TempDir())
	assert.Empty(t, journal.Path())
	assert.Empty(t, journal.Entries())
}
