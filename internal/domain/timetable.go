package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimetableEntry represents one weekly-recurring class in the student's
// timetable, bounded by the semester dates.
type TimetableEntry struct {
	ID        string
	UserID    int64
	Course    string
	Location  string
	TimeStart string // "HH:MM"
	TimeEnd   string // "HH:MM"
	Days      string // comma-separated weekday numbers, e.g. "1,3,5" (0 = Sunday)

	SemesterStart time.Time
	SemesterEnd   time.Time
	CreatedAt     time.Time
}

// Weekdays returns the configured weekdays in ascending order.
func (e *TimetableEntry) Weekdays() []time.Weekday {
	if e.Days == "" {
		return nil
	}
	var days []time.Weekday
	for _, s := range strings.Split(e.Days, ",") {
		if d, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d))
		}
	}
	return days
}

// SetWeekdays stores the given weekdays as the canonical comma-separated form.
func (e *TimetableEntry) SetWeekdays(days []time.Weekday) {
	var parts []string
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	e.Days = strings.Join(parts, ",")
}

// OccursOn reports whether the entry has a class on the given date.
func (e *TimetableEntry) OccursOn(date time.Time) bool {
	if date.Before(startOfDay(e.SemesterStart)) || date.After(endOfDay(e.SemesterEnd)) {
		return false
	}
	for _, d := range e.Weekdays() {
		if date.Weekday() == d {
			return true
		}
	}
	return false
}

// FirstClassDate returns the earliest date on or after the semester start
// that matches one of the entry's weekdays. ok is false when the entry has
// no weekdays configured.
func (e *TimetableEntry) FirstClassDate() (time.Time, bool) {
	days := e.Weekdays()
	if len(days) == 0 {
		return time.Time{}, false
	}
	date := startOfDay(e.SemesterStart)
	for i := 0; i < 7; i++ {
		for _, d := range days {
			if date.Weekday() == d {
				return date, true
			}
		}
		date = date.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// TimeRange returns the formatted class time range.
func (e *TimetableEntry) TimeRange() string {
	if e.TimeEnd != "" {
		return e.TimeStart + "-" + e.TimeEnd
	}
	return e.TimeStart
}

// ParseClock parses a clock value in "HH:MM" form. Trailing garbage and
// out-of-range components are rejected.
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour, err = strconv.Atoi(hh); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if minute, err = strconv.Atoi(mm); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
