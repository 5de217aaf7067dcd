package domain

import (
	"fmt"
	"time"
)

// DatabaseType identifies the database a project runs, which determines the
// default port that must never be exposed.
type DatabaseType string

const (
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseMySQL      DatabaseType = "mysql"
	DatabaseMongoDB    DatabaseType = "mongodb"
)

// ValidDatabaseTypes enumerates all recognized database types.
var ValidDatabaseTypes = []DatabaseType{
	DatabasePostgreSQL,
	DatabaseMySQL,
	DatabaseMongoDB,
}

// DefaultDangerousPorts are database ports that must never be bound to all
// interfaces or allowed through the firewall.
var DefaultDangerousPorts = []int{5432, 3306, 6379, 27017}

// ProjectConfig describes one deployed project under watch.
type ProjectConfig struct {
	Name          string       `yaml:"name"           json:"name"`
	Path          string       `yaml:"path"           json:"path"`
	DockerCompose string       `yaml:"docker_compose" json:"docker_compose,omitempty"`
	AllowedPorts  []int        `yaml:"allowed_ports"  json:"allowed_ports,omitempty"`
	DatabaseType  DatabaseType `yaml:"database_type"  json:"database_type,omitempty"`
}

// SSHConfig locates the sshd configuration to audit.
type SSHConfig struct {
	Port       int    `yaml:"port"`
	ConfigPath string `yaml:"config_path"`
}

// FirewallConfig declares the intended firewall rule set.
type FirewallConfig struct {
	AllowedPorts   []int `yaml:"allowed_ports"`
	DangerousPorts []int `yaml:"dangerous_ports"`
}

// LoginConfig tunes brute-force detection.
type LoginConfig struct {
	AuthLog   string   `yaml:"auth_log"`
	Threshold int      `yaml:"threshold"`
	Window    Duration `yaml:"window"`
}

// CertConfig lists TLS endpoints to watch and the expiry thresholds.
type CertConfig struct {
	Domains      []string `yaml:"domains"`
	WarnDays     int      `yaml:"warn_days"`
	CriticalDays int      `yaml:"critical_days"`
}

// ProcessConfig tunes suspicious-process detection.
type ProcessConfig struct {
	SuspiciousNames []string `yaml:"suspicious_names"`
	CPUThreshold    float64  `yaml:"cpu_threshold"`
}

// PermissionsConfig lists extra sensitive files beyond project .env files.
type PermissionsConfig struct {
	SensitiveFiles   []string `yaml:"sensitive_files"`
	WorldWritableDir string   `yaml:"world_writable_dir"`
}

// RemediationConfig controls the auto-fix engine.
type RemediationConfig struct {
	Enabled    bool   `yaml:"enabled"`
	JournalDir string `yaml:"journal_dir"`
}

// NotifyConfig declares webhook delivery.
type NotifyConfig struct {
	Targets           []string `yaml:"targets"`
	MentionOnCritical string   `yaml:"mention_on_critical"`
	RemindAfter       Duration `yaml:"remind_after"`
}

// RunConfig bounds a single invocation.
type RunConfig struct {
	Timeout      Duration `yaml:"timeout"`
	CheckTimeout Duration `yaml:"check_timeout"`
	LockFile     string   `yaml:"lock_file"`
	StateFile    string   `yaml:"state_file"`
	LogFile      string   `yaml:"log_file"`
}

// Config is the full declarative configuration, loaded fresh each invocation.
type Config struct {
	Projects    []ProjectConfig   `yaml:"projects"`
	SSH         SSHConfig         `yaml:"ssh"`
	Firewall    FirewallConfig    `yaml:"firewall"`
	Logins      LoginConfig       `yaml:"failed_logins"`
	Certs       CertConfig        `yaml:"ssl"`
	Process     ProcessConfig     `yaml:"suspicious_activity"`
	Permissions PermissionsConfig `yaml:"file_permissions"`
	Remediation RemediationConfig `yaml:"remediation"`
	Notify      NotifyConfig      `yaml:"notifications"`
	Run         RunConfig         `yaml:"run"`
}

// DefaultConfig returns the configuration used when a key is absent.
func DefaultConfig() Config {
	return Config{
		SSH: SSHConfig{
			Port:       22,
			ConfigPath: "/etc/ssh/sshd_config",
		},
		Firewall: FirewallConfig{
			DangerousPorts: append([]int(nil), DefaultDangerousPorts...),
		},
		Logins: LoginConfig{
			AuthLog:   "/var/log/auth.log",
			Threshold: 10,
			Window:    Duration(time.Hour),
		},
		Certs: CertConfig{
			WarnDays:     14,
			CriticalDays: 3,
		},
		Process: ProcessConfig{
			SuspiciousNames: []string{
				"xmrig", "minerd", "cpuminer", "cryptonight", "stratum",
				"xmr-stak", "ccminer", "ethminer", "nbminer", "phoenixminer",
			},
			CPUThreshold: 90,
		},
		Permissions: PermissionsConfig{
			WorldWritableDir: "/opt",
		},
		Remediation: RemediationConfig{
			Enabled:    true,
			JournalDir: "/var/lib/vpsguard/journal",
		},
		Notify: NotifyConfig{
			RemindAfter: Duration(24 * time.Hour),
		},
		Run: RunConfig{
			Timeout:      Duration(5 * time.Minute),
			CheckTimeout: Duration(30 * time.Second),
			LockFile:     "/var/lib/vpsguard/run.lock",
			StateFile:    "/var/lib/vpsguard/alerts.json",
			LogFile:      "/var/log/vpsguard.log",
		},
	}
}

// DangerousPorts returns the configured dangerous ports, falling back to the
// database defaults.
func (c Config) DangerousPorts() []int {
	if len(c.Firewall.DangerousPorts) > 0 {
		return c.Firewall.DangerousPorts
	}
	return DefaultDangerousPorts
}

// Validate rejects configurations the engine must not run with. A project
// allowing a database default port is a declaration error, not a finding.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Projects))
	dangerous := make(map[int]bool)
	for _, p := range c.DangerousPorts() {
		dangerous[p] = true
	}

	for _, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("project with path %q has no name", p.Path)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Path == "" {
			return fmt.Errorf("project %q has no path", p.Name)
		}

		if p.DatabaseType != "" && !validDatabaseType(p.DatabaseType) {
			return fmt.Errorf("project %q: unknown database_type %q (valid: %v)",
				p.Name, p.DatabaseType, ValidDatabaseTypes)
		}

		for _, port := range p.AllowedPorts {
			if port <= 0 || port > 65535 {
				return fmt.Errorf("project %q: invalid port %d", p.Name, port)
			}
			if dangerous[port] {
				return fmt.Errorf("project %q allows database port %d; databases must stay on the internal network",
					p.Name, port)
			}
		}
	}

	for _, port := range c.Firewall.AllowedPorts {
		if dangerous[port] {
			return fmt.Errorf("firewall allowed_ports includes database port %d", port)
		}
	}

	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("invalid ssh port %d", c.SSH.Port)
	}
	if c.Logins.Threshold < 0 {
		return fmt.Errorf("failed_logins threshold must not be negative")
	}
	if c.Certs.WarnDays < c.Certs.CriticalDays {
		return fmt.Errorf("ssl warn_days (%d) must be >= critical_days (%d)",
			c.Certs.WarnDays, c.Certs.CriticalDays)
	}
	if c.Run.Timeout <= 0 || c.Run.CheckTimeout <= 0 {
		return fmt.Errorf("run timeouts must be positive")
	}

	return nil
}

func validDatabaseType(dt DatabaseType) bool {
	for _, v := range ValidDatabaseTypes {
		if dt == v {
			return true
		}
	}
	return false
}
