// Package ics renders timetable entries and tasks as iCalendar documents
// for download by the client.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"studyplanner/internal/domain"
)

var (
	ErrNoEntries = errors.New("no timetable entries to export")
	ErrNoTasks   = errors.New("no tasks to export")
)

const prodID = "-//StudyPlanner//Calendar//EN"

// Timetable renders the given weekly timetable entries as an iCalendar
// document: one VEVENT per entry with a weekly BYDAY rule bounded by the
// semester end date. DTSTART is the earliest date on or after the semester
// start matching one of the entry's weekdays, expressed in loc.
func Timetable(entries []*domain.TimetableEntry, loc *time.Location) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if loc == nil {
		loc = time.Local
	}

	cal := newCalendar()
	for _, e := range entries {
		vevent, err := entryToVEvent(e, loc)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Course, err)
		}
		cal.Children = append(cal.Children, vevent.Component)
	}
	return encode(cal)
}

// Tasks renders task masters as VEVENTs. Recurring masters carry the
// equivalent RRULE so consuming calendars expand them on their own.
func Tasks(tasks []*domain.Task, loc *time.Location) ([]byte, error) {
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if loc == nil {
		loc = time.Local
	}

	cal := newCalendar()
	for _, t := range tasks {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, fmt.Sprintf("task-%d@studyplanner", t.ID))
		vevent.Props.SetText(ical.PropSummary, t.Title)
		if t.Description != "" {
			vevent.Props.SetText(ical.PropDescription, t.Description)
		}
		vevent.Props.SetDateTime(ical.PropDateTimeStart, t.DueDate.In(loc))
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, t.DueDate.Add(time.Hour).In(loc))
		if t.Recurs() {
			setRecurrenceRule(vevent, ruleString(t.Repeat))
		}
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
		cal.Children = append(cal.Children, vevent.Component)
	}
	return encode(cal)
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	return cal
}

func entryToVEvent(e *domain.TimetableEntry, loc *time.Location) (*ical.Event, error) {
	days := e.Weekdays()
	if len(days) == 0 {
		return nil, errors.New("no weekdays configured")
	}
	if e.SemesterEnd.Before(e.SemesterStart) {
		return nil, errors.New("semester end precedes semester start")
	}

	startHour, startMin, err := domain.ParseClock(e.TimeStart)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}

	// First occurrence: earliest date on/after the semester start matching
	// one of the configured weekdays.
	date := time.Date(e.SemesterStart.Year(), e.SemesterStart.Month(), e.SemesterStart.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < 7; i++ {
		if weekdayMatches(date.Weekday(), days) {
			break
		}
		date = date.AddDate(0, 0, 1)
	}

	dtStart := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, loc)

	var dtEnd time.Time
	if e.TimeEnd != "" {
		endHour, endMin, err := domain.ParseClock(e.TimeEnd)
		if err != nil {
			return nil, fmt.Errorf("end time: %w", err)
		}
		dtEnd = time.Date(date.Year(), date.Month(), date.Day(), endHour, endMin, 0, 0, loc)
	} else {
		dtEnd = dtStart.Add(time.Hour)
	}
	if !dtEnd.After(dtStart) {
		return nil, errors.New("end time does not follow start time")
	}

	var byDays []string
	for _, d := range days {
		byDays = append(byDays, weekdayToByDay(d))
	}

	// UNTIL must be UTC per RFC 5545; bound it to the end of the semester's
	// last day in the display zone.
	until := time.Date(e.SemesterEnd.Year(), e.SemesterEnd.Month(), e.SemesterEnd.Day(), 23, 59, 59, 0, loc).UTC()
	rrule := fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s;UNTIL=%s",
		strings.Join(byDays, ","), until.Format("20060102T150405Z"))

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, e.ID+"@studyplanner")
	vevent.Props.SetText(ical.PropSummary, e.Course)
	if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}
	// Keep DTSTART in the display zone, not UTC: a weekly rule converted to
	// UTC would drift across DST transitions.
	vevent.Props.SetDateTime(ical.PropDateTimeStart, dtStart)
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, dtEnd)
	setRecurrenceRule(vevent, rrule)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	return vevent, nil
}

// setRecurrenceRule attaches an RRULE with the RECUR value type so the
// encoder emits it verbatim instead of escaping it as text.
func setRecurrenceRule(vevent *ical.Event, rule string) {
	prop := ical.NewProp(ical.PropRecurrenceRule)
	prop.SetValueType(ical.ValueRecurrence)
	prop.Value = rule
	vevent.Props.Set(prop)
}

// ruleString renders a task recurrence rule in RRULE form.
func ruleString(r *domain.RecurrenceRule) string {
	parts := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}

// weekdayToByDay converts a Go weekday to the RRULE BYDAY form.
func weekdayToByDay(wd time.Weekday) string {
	days := []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
	return days[wd]
}

func weekdayMatches(wd time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if wd == d {
			return true
		}
	}
	return false
}

func encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
