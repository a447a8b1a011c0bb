package domain

import (
	"errors"
	"time"
)

type Frequency string

const (
	FreqNone    Frequency = ""
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// ParseFrequency maps a stored/user-supplied frequency string to a
// Frequency. The empty string means the task does not recur.
func ParseFrequency(s string) (Frequency, bool) {
	switch Frequency(s) {
	case FreqNone, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return Frequency(s), true
	}
	return FreqNone, false
}

// RecurrenceRule describes how a master task repeats. The end condition is
// one of: never (Count == 0 and Until == nil), after a fixed number of
// occurrences (Count > 0), or up to a hard end date (Until != nil).
type RecurrenceRule struct {
	Frequency Frequency
	Interval  int
	Count     int
	Until     *time.Time
}

func (r *RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
	case FreqNone:
		return errors.New("recurrence rule has no frequency")
	default:
		return errors.New("unknown recurrence frequency")
	}
	if r.Interval < 1 {
		return errors.New("recurrence interval must be at least 1")
	}
	if r.Count < 0 {
		return errors.New("recurrence count cannot be negative")
	}
	if r.Count > 0 && r.Until != nil {
		return errors.New("recurrence cannot have both count and end date")
	}
	return nil
}
