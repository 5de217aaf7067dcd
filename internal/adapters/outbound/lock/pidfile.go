// Package lock serializes runs with a pidfile.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// PIDFile implements domain.RunLocker with O_EXCL creation. A file left by a
// dead process is detected by probing its pid and reclaimed, so one crashed
// run cannot block the schedule forever.
type PIDFile struct {
	path string
}

func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

func (l *PIDFile) Acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return nil, fmt.Errorf("preparing lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { _ = os.Remove(l.path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock: %w", err)
		}

		if l.holderAlive() {
			return nil, fmt.Errorf("lock %s: %w", l.path, domain.ErrLockHeld)
		}
		// Stale lock from a dead process; remove and retry once.
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("lock %s: %w", l.path, domain.ErrLockHeld)
}

// holderAlive reports whether the pid recorded in the lock file still runs.
// An unreadable or garbled file counts as alive; wrongly skipping a run is
// safer than two concurrent remediations.
func (l *PIDFile) holderAlive() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return true
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return true
	}
	// Signal 0 probes existence without delivering anything.
	return syscall.Kill(pid, 0) == nil
}
