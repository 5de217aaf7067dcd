// Package config loads the declarative YAML configuration. Secrets never
// live in the YAML file: webhook URLs come from a KEY=value secrets file or
// the environment and are merged in after parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// webhookEnv lists comma-separated webhook URLs appended to the notify targets.
const webhookEnv = "SLACK_WEBHOOK_URLS"

// Loader reads one YAML file, with optional secrets from a dotenv file.
type Loader struct {
	path        string
	secretsPath string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// WithSecrets points the loader at a KEY=value file loaded into the
// environment before the YAML is parsed, so ${VAR} references resolve.
func (l *Loader) WithSecrets(path string) *Loader {
	l.secretsPath = path
	return l
}

// Load parses the file over the built-in defaults and validates the result.
// A missing config file is not an error; the defaults cover a bare host.
func (l *Loader) Load() (domain.Config, error) {
	if l.secretsPath != "" {
		if err := godotenv.Load(l.secretsPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("loading secrets %s: %w", l.secretsPath, err)
		}
	}

	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// fall through to env merge with defaults
	case err != nil:
		return domain.Config{}, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return domain.Config{}, fmt.Errorf("parsing %s: %w", l.path, err)
		}
	}

	for _, url := range splitWebhooks(os.Getenv(webhookEnv)) {
		if !contains(cfg.Notify.Targets, url) {
			cfg.Notify.Targets = append(cfg.Notify.Targets, url)
		}
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitWebhooks(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if url := strings.TrimSpace(part); url != "" {
			out = append(out, url)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
