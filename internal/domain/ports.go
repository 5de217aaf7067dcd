package domain

import (
	"context"
	"time"
)

// Check is a stateless inspector producing zero or more Findings. Checks are
// independent and read-only; any internal error must be folded into a warning
// Finding rather than returned.
type Check interface {
	ID() string
	Evaluate(ctx context.Context) []Finding
}

// FirewallState is a snapshot of the host firewall.
type FirewallState struct {
	Installed    bool
	Active       bool
	AllowedPorts []int
}

// FirewallInspector reads the host firewall state.
type FirewallInspector interface {
	State(ctx context.Context) (FirewallState, error)
}

// ProcessInfo describes one running process.
type ProcessInfo struct {
	PID        int32
	User       string
	Name       string
	Cmdline    string
	CPUPercent float64
}

// ProcessInspector reads the process table.
type ProcessInspector interface {
	Processes(ctx context.Context) ([]ProcessInfo, error)
}

// ListeningSocket is one TCP socket in LISTEN state.
type ListeningSocket struct {
	Address string
	Port    int
	PID     int32
	Process string
}

// WildcardBound reports whether the socket accepts traffic on all interfaces.
func (s ListeningSocket) WildcardBound() bool {
	return s.Address == "0.0.0.0" || s.Address == "::" || s.Address == "*" || s.Address == ""
}

// SocketInspector reads listening TCP sockets.
type SocketInspector interface {
	ListeningSockets(ctx context.Context) ([]ListeningSocket, error)
}

// ContainerPort is one published container port mapping.
type ContainerPort struct {
	HostIP        string
	HostPort      int
	ContainerPort int
}

// ContainerInfo describes one running container and its published ports.
type ContainerInfo struct {
	Name  string
	Ports []ContainerPort
}

// ContainerInspector reads running containers. An unreachable daemon is an
// error; checks fail soft on it.
type ContainerInspector interface {
	Containers(ctx context.Context) ([]ContainerInfo, error)
}

// ComposeExposure is one dangerous port mapping declared in a compose file.
type ComposeExposure struct {
	Service       string
	HostPort      int
	ContainerPort int
}

// ComposeScanner parses a docker-compose file for dangerous port mappings.
type ComposeScanner interface {
	ExposedPorts(path string, dangerous []int) ([]ComposeExposure, error)
}

// CertificateInspector resolves the expiry of the certificate a host serves.
type CertificateInspector interface {
	Expiry(ctx context.Context, host string) (time.Time, error)
}

// SSHConfigReader parses the effective sshd configuration into lowercase
// key/value settings.
type SSHConfigReader interface {
	Settings(ctx context.Context) (map[string]string, error)
}

// LoginAttempt is one failed authentication parsed from the auth log.
type LoginAttempt struct {
	SourceIP string
	When     time.Time
}

// AuthLogInspector reads failed logins within a window and the fail2ban state.
type AuthLogInspector interface {
	FailedLogins(ctx context.Context, window time.Duration) ([]LoginAttempt, error)
	Fail2banActive(ctx context.Context) bool
}

// PendingUpdates summarizes upgradable packages.
type PendingUpdates struct {
	Security []string
	Kernel   []string
	Other    []string
}

// Total is the number of upgradable packages.
func (u PendingUpdates) Total() int {
	return len(u.Security) + len(u.Kernel) + len(u.Other)
}

// PackageInspector reads pending OS package updates.
type PackageInspector interface {
	PendingUpdates(ctx context.Context) (PendingUpdates, error)
}

// NotificationSummary is what the notifier delivers for one run.
type NotificationSummary struct {
	Hostname  string
	Timestamp time.Time
	AllOK     bool
	Critical  []Finding
	Warnings  []Finding
	Info      []Finding
	Fixed     []RemediationResult
	Resolved  []AlertRecord
	Mention   string
}

// Notifier delivers a run summary to external channels. Delivery failure must
// never fail the run.
type Notifier interface {
	Send(ctx context.Context, summary NotificationSummary) error
	SendTest(ctx context.Context) error
}

// StateStore persists AlertState between runs. Load never fails hard: a
// missing or corrupt state file yields an empty state.
type StateStore interface {
	Load() AlertState
	Save(state AlertState) error
}

// RunLocker serializes invocations. Acquire returns ErrLockHeld (wrapped or
// direct) when another run is in progress.
type RunLocker interface {
	Acquire() (release func(), err error)
}

// RunLogger appends per-check lines to the append-only run log.
type RunLogger interface {
	LogFinding(f Finding)
	LogRun(result RunResult)
	LogSkipped(reason string)
}
