package audit

import "time"

// MaxEntries is the retention cap on the persisted log. Every append
// truncates the collection to the newest MaxEntries records.
const MaxEntries = 1000

// EntryType classifies a log entry by the event that produced it.
type EntryType string

// EntryType constants.
const (
	EntrySensor   EntryType = "sensor"
	EntryActuator EntryType = "actuator"
	EntryRule     EntryType = "rule"
	EntrySystem   EntryType = "system"
)

// AllEntryTypes returns all valid entry type values.
func AllEntryTypes() []EntryType {
	return []EntryType{EntrySensor, EntryActuator, EntryRule, EntrySystem}
}

// LogEntry is one immutable line of the audit trail.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EntryType `json:"type"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
}
