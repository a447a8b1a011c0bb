package domain

import "time"

// CalendarEvent is an event synced from an external CalDAV subscription
// (typically the university calendar). These are read-only on our side.
type CalendarEvent struct {
	ID          int64
	UserID      int64
	UID         string // UID from the CalDAV source
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
	SyncedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StartsOn reports whether the event starts on the given calendar day,
// evaluated in that day's zone.
func (e *CalendarEvent) StartsOn(day time.Time) bool {
	start := e.StartTime.In(day.Location())
	return start.Year() == day.Year() && start.YearDay() == day.YearDay()
}

// FormatTime returns the display time range for the event.
func (e *CalendarEvent) FormatTime() string {
	if e.AllDay {
		return "all day"
	}
	if e.EndTime.IsZero() {
		return e.StartTime.Format("15:04")
	}
	return e.StartTime.Format("15:04") + "-" + e.EndTime.Format("15:04")
}
