package domain

import "time"

// AlertRecord is what we remember about one previously reported finding.
type AlertRecord struct {
	Fingerprint  string    `json:"fingerprint"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	FirstSeen    time.Time `json:"first_seen"`
	LastNotified time.Time `json:"last_notified"`
}

// AlertState is the only durable cross-run memory: a map from check ID to the
// last-reported alert. Deleting it causes a one-time full re-announcement.
type AlertState struct {
	Records map[string]AlertRecord `json:"records"`
}

// NewAlertState returns an empty state.
func NewAlertState() AlertState {
	return AlertState{Records: make(map[string]AlertRecord)}
}

// AlertDelta is the outcome of diffing a run's findings against AlertState:
// exactly the notifications this run should deliver.
type AlertDelta struct {
	New       []Finding
	Escalated []Finding
	Reminders []Finding
	Resolved  []AlertRecord
}

// Empty reports whether the delta carries nothing worth notifying.
func (d AlertDelta) Empty() bool {
	return len(d.New) == 0 && len(d.Escalated) == 0 &&
		len(d.Reminders) == 0 && len(d.Resolved) == 0
}

// Diff compares the current findings against the previous state and returns
// the notifications due plus the state to persist for the next run.
//
// A finding is notified when it is new, when its severity rose since the last
// notification, or when remindAfter has elapsed since the last notification.
// A tracked alert whose check now reports nothing above ok produces a one-time
// resolved notice.
func Diff(prev AlertState, findings []Finding, now time.Time, remindAfter time.Duration) (AlertDelta, AlertState) {
	next := NewAlertState()
	var delta AlertDelta

	current := make(map[string]Finding)
	for _, f := range findings {
		if f.Severity == SeverityOK {
			continue
		}
		// One alert per check: keep the worst finding.
		if existing, ok := current[f.CheckID]; !ok || f.Severity > existing.Severity {
			current[f.CheckID] = f
		}
	}

	for checkID, f := range current {
		rec, known := prev.Records[checkID]

		switch {
		case !known:
			delta.New = append(delta.New, f)
			next.Records[checkID] = AlertRecord{
				Fingerprint:  f.Fingerprint(),
				Severity:     f.Severity,
				Message:      f.Message,
				FirstSeen:    now,
				LastNotified: now,
			}

		case f.Severity > rec.Severity:
			delta.Escalated = append(delta.Escalated, f)
			next.Records[checkID] = AlertRecord{
				Fingerprint:  f.Fingerprint(),
				Severity:     f.Severity,
				Message:      f.Message,
				FirstSeen:    rec.FirstSeen,
				LastNotified: now,
			}

		case remindAfter > 0 && now.Sub(rec.LastNotified) >= remindAfter:
			delta.Reminders = append(delta.Reminders, f)
			next.Records[checkID] = AlertRecord{
				Fingerprint:  f.Fingerprint(),
				Severity:     f.Severity,
				Message:      f.Message,
				FirstSeen:    rec.FirstSeen,
				LastNotified: now,
			}

		default:
			// Unchanged and recently notified: suppress, carry forward.
			rec.Severity = f.Severity
			rec.Fingerprint = f.Fingerprint()
			rec.Message = f.Message
			next.Records[checkID] = rec
		}
	}

	for checkID, rec := range prev.Records {
		if _, still := current[checkID]; !still {
			delta.Resolved = append(delta.Resolved, rec)
		}
	}

	return delta, next
}
