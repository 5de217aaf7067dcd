// Package state persists alert state between runs as a JSON file.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vpsguard/vpsguard/internal/domain"
)

// FileStore implements domain.StateStore on a single JSON file. Load treats a
// missing or corrupt file as empty state: the worst outcome is a one-time
// re-announcement of known alerts, which beats refusing to scan.
type FileStore struct {
	path string
}

func New(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() domain.AlertState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.NewAlertState()
	}

	var state domain.AlertState
	if err := json.Unmarshal(data, &state); err != nil || state.Records == nil {
		return domain.NewAlertState()
	}
	return state
}

// Save writes atomically via a temp file so a crash mid-write cannot leave a
// truncated state behind.
func (s *FileStore) Save(state domain.AlertState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
