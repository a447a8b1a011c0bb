package domain

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Category    string
	Priority    Priority
	DueDate     time.Time
	Completed   bool
	Repeat      *RecurrenceRule

	// CompletionOverrides records per-occurrence completion state for
	// recurring tasks, keyed by DateKey of the occurrence date. An absent
	// key means the occurrence inherits Completed from the master.
	CompletionOverrides map[string]bool

	CreatedAt time.Time
}

// Recurs reports whether the task carries an effective recurrence rule.
func (t *Task) Recurs() bool {
	return t.Repeat != nil && t.Repeat.Frequency != FreqNone
}

// OccurrenceDone resolves the completion flag for the occurrence on the
// given date: the override if one exists, the master flag otherwise.
func (t *Task) OccurrenceDone(date time.Time) bool {
	if done, ok := t.CompletionOverrides[DateKey(date)]; ok {
		return done
	}
	return t.Completed
}

// DateKey formats a timestamp as the canonical occurrence key. Only the
// calendar date participates so that re-renders and toggles agree on the
// same key regardless of sub-day precision.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDateKey parses a key previously produced by DateKey.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
