package inspect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// SSHDConfig parses sshd_config into lowercase key/value settings. Include
// directives are followed, and like sshd itself, the first occurrence of a
// key wins.
type SSHDConfig struct {
	path string
}

func NewSSHDConfig(path string) *SSHDConfig {
	return &SSHDConfig{path: path}
}

func (s *SSHDConfig) Settings(_ context.Context) (map[string]string, error) {
	settings := make(map[string]string)
	if err := parseSSHDFile(s.path, settings, 0); err != nil {
		return nil, err
	}
	return settings, nil
}

func parseSSHDFile(path string, settings map[string]string, depth int) error {
	if depth > 4 {
		return nil // include cycle guard
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := strings.ToLower(fields[0])
		value := strings.Join(fields[1:], " ")

		if key == "include" {
			pattern := fields[1]
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(filepath.Dir(path), pattern)
			}
			matches, _ := filepath.Glob(pattern)
			for _, m := range matches {
				// Included files may be unreadable; sshd skips them too.
				_ = parseSSHDFile(m, settings, depth+1)
			}
			continue
		}

		if _, exists := settings[key]; !exists {
			settings[key] = strings.ToLower(value)
		}
	}
	return nil
}
