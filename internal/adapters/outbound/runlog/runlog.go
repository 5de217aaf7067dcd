// Package runlog appends a grep-friendly line per finding to the run log.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// FileLogger implements domain.RunLogger on an append-only file. Logging is
// best effort: a full disk must not break the scan that might be reporting
// exactly that kind of problem.
type FileLogger struct {
	path string
	now  func() time.Time
}

func New(path string) *FileLogger {
	return &FileLogger{path: path, now: time.Now}
}

func (l *FileLogger) LogFinding(f domain.Finding) {
	l.append(fmt.Sprintf("[%s] %s: %s", strings.ToUpper(f.Severity.String()), f.CheckID, f.Message))
}

func (l *FileLogger) LogRun(result domain.RunResult) {
	l.append(fmt.Sprintf("run complete: status=%s findings=%d fixed=%d duration=%s",
		result.OverallStatus(), len(result.Findings), len(result.Fixed),
		result.Duration.Round(time.Millisecond)))
}

func (l *FileLogger) LogSkipped(reason string) {
	l.append("run skipped: " + reason)
}

func (l *FileLogger) append(line string) {
	if l.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", l.now().Format("2006-01-02 15:04:05"), line)
}
