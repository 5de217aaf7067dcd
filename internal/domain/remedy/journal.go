package remedy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JournalEntry records the state a fix is about to overwrite.
type JournalEntry struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Prior  string    `json:"prior"`
}

// Journal persists one file per run session under the journal directory. The
// file only exists if at least one fix was applied, and is rewritten after
// every entry so a crash mid-remediation still leaves a usable record.
type Journal struct {
	dir     string
	session string
	entries []JournalEntry
	now     func() time.Time
}

func NewJournal(dir string) *Journal {
	return &Journal{
		dir:     dir,
		session: time.Now().Format("20060102-150405"),
		now:     time.Now,
	}
}

// Record appends the entry and flushes the session file. Flush errors are
// swallowed: a fix must not be blocked because the journal disk is full.
func (j *Journal) Record(entry JournalEntry) {
	if j == nil {
		return
	}
	entry.Time = j.now()
	j.entries = append(j.entries, entry)
	j.flush()
}

// Entries returns everything recorded this session.
func (j *Journal) Entries() []JournalEntry {
	if j == nil {
		return nil
	}
	return j.entries
}

// Path is the session file location, empty when nothing was recorded.
func (j *Journal) Path() string {
	if j == nil || len(j.entries) == 0 {
		return ""
	}
	return filepath.Join(j.dir, fmt.Sprintf("session-%s.json", j.session))
}

func (j *Journal) flush() {
	if err := os.MkdirAll(j.dir, 0o750); err != nil {
		return
	}
	data, err := json.MarshalIndent(j.entries, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(j.Path(), data, 0o640)
}
