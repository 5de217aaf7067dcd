package checks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vpsguard/vpsguard/internal/domain"
)

const CheckPermissions = "file_permissions"

// PermissionsCheck audits secret files for modes readable beyond the owner.
// The only check that touches the filesystem directly: stat is cheap,
// portable, and trivially tested against a temp dir.
type PermissionsCheck struct {
	cfg domain.Config
}

func NewPermissionsCheck(cfg domain.Config) *PermissionsCheck {
	return &PermissionsCheck{cfg: cfg}
}

func (c *PermissionsCheck) ID() string { return CheckPermissions }

func (c *PermissionsCheck) Evaluate(ctx context.Context) []domain.Finding {
	var loose []string
	var fixable []string

	for _, path := range c.secretFiles() {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			loose = append(loose, fmt.Sprintf("%s: cannot check permissions: %v", path, err))
			continue
		}
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			loose = append(loose, fmt.Sprintf("%s has mode %03o (readable beyond owner)", path, mode))
			fixable = append(fixable, path)
		}
	}

	root := c.cfg.Permissions.WorldWritableDir
	var worldWritable []string
	if root != "" {
		worldWritable = c.findWorldWritable(root, 10)
	}

	var findings []domain.Finding
	if len(loose) > 0 {
		findings = append(findings, domain.Finding{
			CheckID:     CheckPermissions,
			Severity:    domain.SeverityWarning,
			Message:     fmt.Sprintf("%d secret file(s) readable by non-owner", len(fixable)),
			Details:     loose,
			AutoFixable: len(fixable) > 0,
			FixAction:   domain.FixPermissions,
			FilePaths:   fixable,
		})
	}
	if len(worldWritable) > 0 {
		findings = append(findings, domain.Finding{
			CheckID:  CheckPermissions,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("%d world-writable file(s) under %s", len(worldWritable), root),
			Details:  worldWritable,
		})
	}

	if len(findings) == 0 {
		findings = append(findings, ok(CheckPermissions,
			"all secret files are owner-only",
			"no world-writable files found"))
	}
	return findings
}

// secretFiles is every project's .env plus the configured sensitive files.
func (c *PermissionsCheck) secretFiles() []string {
	var paths []string
	for _, p := range c.cfg.Projects {
		paths = append(paths, filepath.Join(p.Path, ".env"))
	}
	paths = append(paths, c.cfg.Permissions.SensitiveFiles...)
	return paths
}

func (c *PermissionsCheck) findWorldWritable(root string, limit int) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if len(out) >= limit {
			return filepath.SkipAll
		}
		if d.Type().IsRegular() {
			if info, ierr := d.Info(); ierr == nil && info.Mode().Perm()&0o002 != 0 {
				out = append(out, path)
			}
		}
		return nil
	})
	return out
}
