package inspect

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/vpsguard/vpsguard/internal/domain"
)

var failedLoginPattern = regexp.MustCompile(`Failed password.* from\s+(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// maxAuthLogLines caps how much of the log is kept; a busy brute-forced host
// can grow auth.log far past what one window needs.
const maxAuthLogLines = 5000

// AuthLog parses sshd failures out of the system auth log and asks systemd
// about fail2ban.
type AuthLog struct {
	path string
	run  Runner
	now  func() time.Time
}

func NewAuthLog(path string, run Runner) *AuthLog {
	return &AuthLog{path: path, run: run, now: time.Now}
}

func (a *AuthLog) FailedLogins(_ context.Context, window time.Duration) ([]domain.LoginAttempt, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "Failed password") {
			continue
		}
		lines = append(lines, line)
		if len(lines) > maxAuthLogLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	now := a.now()
	cutoff := now.Add(-window)

	var attempts []domain.LoginAttempt
	for _, line := range lines {
		m := failedLoginPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		when, ok := parseSyslogTime(line, now)
		if ok && when.Before(cutoff) {
			continue
		}
		// Unparseable timestamps count toward the window; dropping them
		// would hide attacks on hosts with unusual log formats.
		attempts = append(attempts, domain.LoginAttempt{SourceIP: m[1], When: when})
	}
	return attempts, nil
}

func (a *AuthLog) Fail2banActive(ctx context.Context) bool {
	out, err := a.run.Run(ctx, "systemctl", "is-active", "fail2ban")
	return err == nil && strings.TrimSpace(string(out)) == "active"
}

// parseSyslogTime handles both the traditional "Jan  2 15:04:05" prefix and
// the RFC3339 prefix newer distributions write.
func parseSyslogTime(line string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, fields[0]); err == nil {
		return t, true
	}

	if len(fields) >= 3 {
		stamp := strings.Join(fields[:3], " ")
		if t, err := time.ParseInLocation(time.Stamp, stamp, now.Location()); err == nil {
			// The classic format has no year; assume the current one unless
			// that lands in the future (a December log read in January).
			t = t.AddDate(now.Year(), 0, 0)
			if t.After(now.Add(24 * time.Hour)) {
				t = t.AddDate(-1, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
