package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"studyplanner/internal/clients/caldav"
	"studyplanner/internal/domain"
	"studyplanner/internal/storage"
)

// AgendaItem is one row of the merged calendar view: a task occurrence, a
// timetable class instance, or a synced external event.
type AgendaItem struct {
	Kind     string          `json:"kind"` // "task", "class" or "event"
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Location string          `json:"location,omitempty"`
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end,omitempty"`
	AllDay   bool            `json:"all_day,omitempty"`
	Done     bool            `json:"done,omitempty"`
	Priority domain.Priority `json:"priority,omitempty"`
}

// CalendarService merges the user's task occurrences, timetable classes and
// synced external events into one agenda, and keeps the external events
// fresh via the CalDAV subscription.
type CalendarService struct {
	storage   *storage.Storage
	tasks     *TaskService
	timetable *TimetableService
	client    *caldav.Client
	timezone  *time.Location
}

func NewCalendarService(s *storage.Storage, tasks *TaskService, timetable *TimetableService, client *caldav.Client, tz *time.Location) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	return &CalendarService{
		storage:   s,
		tasks:     tasks,
		timetable: timetable,
		client:    client,
		timezone:  tz,
	}
}

// IsSyncConfigured reports whether the CalDAV subscription is usable.
func (s *CalendarService) IsSyncConfigured() bool {
	return s.client != nil && s.client.IsConfigured()
}

// Sync pulls the subscribed calendar and upserts its events for the user.
// Individual bad events are skipped by the client; a transport failure is
// returned so the scheduler can log it.
func (s *CalendarService) Sync(ctx context.Context, userID int64) error {
	if !s.IsSyncConfigured() {
		return nil
	}

	// The sync window is computed in the user's own zone when known.
	loc := s.timezone
	if user, err := s.storage.GetUserByID(userID); err == nil && user != nil {
		loc = user.Location()
	}

	now := time.Now().In(loc)
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 60)

	events, err := s.client.GetEvents(ctx, from, to)
	if err != nil {
		return fmt.Errorf("fetch subscription: %w", err)
	}

	for _, ev := range events {
		rec := &domain.CalendarEvent{
			UserID:      userID,
			UID:         ev.UID,
			Title:       ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			AllDay:      ev.AllDay,
		}
		if err := s.storage.UpsertCalendarEvent(rec); err != nil {
			log.Printf("calendar: upsert event %s: %v", ev.UID, err)
		}
	}

	log.Printf("calendar: synced %d events for user %d", len(events), userID)
	return nil
}

// Agenda returns the merged, date-ordered agenda for the inclusive window.
func (s *CalendarService) Agenda(userID int64, from, to time.Time) ([]AgendaItem, error) {
	if to.Before(from) {
		return nil, errors.New("window end precedes window start")
	}

	var items []AgendaItem

	occs, err := s.tasks.Occurrences(userID, from, to)
	if err != nil {
		return nil, err
	}
	for _, o := range occs {
		items = append(items, AgendaItem{
			Kind:     "task",
			ID:       o.ID,
			Title:    o.Title,
			Start:    o.Due,
			Done:     o.Done,
			Priority: o.Priority,
		})
	}

	classes, err := s.classInstances(userID, from, to)
	if err != nil {
		return nil, err
	}
	items = append(items, classes...)

	events, err := s.storage.ListCalendarEventsBetween(userID, from, to)
	if err != nil {
		return nil, storageErr("list calendar events", err)
	}
	for _, ev := range events {
		items = append(items, AgendaItem{
			Kind:     "event",
			ID:       ev.UID,
			Title:    ev.Title,
			Location: ev.Location,
			Start:    ev.StartTime,
			End:      ev.EndTime,
			AllDay:   ev.AllDay,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Start.Equal(items[j].Start) {
			return items[i].ID < items[j].ID
		}
		return items[i].Start.Before(items[j].Start)
	})
	return items, nil
}

// classInstances materializes timetable entries into dated class instances
// inside the window. An entry with an unparseable time is skipped and
// logged; it does not abort the rest of the agenda.
func (s *CalendarService) classInstances(userID int64, from, to time.Time) ([]AgendaItem, error) {
	entries, err := s.storage.ListTimetableByUser(userID)
	if err != nil {
		return nil, storageErr("list timetable", err)
	}

	var items []AgendaItem
	for date := startOfDayIn(from, s.timezone); !date.After(to); date = date.AddDate(0, 0, 1) {
		for _, e := range entries {
			if !e.OccursOn(date) {
				continue
			}
			start, end, err := classTimes(e, date)
			if err != nil {
				log.Printf("calendar: skipping entry %s: %v", e.ID, err)
				continue
			}
			if start.Before(from) || start.After(to) {
				continue
			}
			items = append(items, AgendaItem{
				Kind:     "class",
				ID:       e.ID + "@" + domain.DateKey(date),
				Title:    e.Course,
				Location: e.Location,
				Start:    start,
				End:      end,
			})
		}
	}
	return items, nil
}

func classTimes(e *domain.TimetableEntry, date time.Time) (start, end time.Time, err error) {
	hh, mm, err := domain.ParseClock(e.TimeStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start time: %w", err)
	}
	start = time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, date.Location())

	if e.TimeEnd != "" {
		hh, mm, err = domain.ParseClock(e.TimeEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end time: %w", err)
		}
		end = time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, date.Location())
	} else {
		end = start.Add(time.Hour)
	}
	return start, end, nil
}

// TodayClasses returns the timetable entries holding class on the day of now.
func (s *CalendarService) TodayClasses(userID int64, now time.Time) ([]*domain.TimetableEntry, error) {
	entries, err := s.storage.ListTimetableByUser(userID)
	if err != nil {
		return nil, storageErr("list timetable", err)
	}
	day := startOfDayIn(now, s.timezone)
	var out []*domain.TimetableEntry
	for _, e := range entries {
		if e.OccursOn(day) {
			out = append(out, e)
		}
	}
	return out, nil
}

// TodayEvents returns the synced external events starting on the day of now.
// The day boundary is evaluated in the service zone, so the stored range is
// queried with a day of slack on each side before filtering.
func (s *CalendarService) TodayEvents(userID int64, now time.Time) ([]*domain.CalendarEvent, error) {
	day := startOfDayIn(now, s.timezone)
	events, err := s.storage.ListCalendarEventsBetween(userID, day.AddDate(0, 0, -1), day.AddDate(0, 0, 2))
	if err != nil {
		return nil, storageErr("list calendar events", err)
	}
	var out []*domain.CalendarEvent
	for _, ev := range events {
		if ev.StartsOn(day) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Calendars lists the calendar collections available on the subscription
// server, for picking which one to sync.
func (s *CalendarService) Calendars(ctx context.Context) ([]caldav.Calendar, error) {
	if !s.IsSyncConfigured() {
		return nil, errors.New("calendar subscription is not configured")
	}
	return s.client.DiscoverCalendars(ctx)
}

func startOfDayIn(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
