package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studyplanner/internal/domain"
	"studyplanner/internal/ics"
	"studyplanner/internal/storage"
)

type TimetableService struct {
	storage *storage.Storage
}

func NewTimetableService(s *storage.Storage) *TimetableService {
	return &TimetableService{storage: s}
}

// Create validates and persists a new timetable entry.
func (s *TimetableService) Create(userID int64, course, location, timeStart, timeEnd string, days []time.Weekday, semesterStart, semesterEnd time.Time) (*domain.TimetableEntry, error) {
	if course == "" {
		return nil, errors.New("course name cannot be empty")
	}
	if _, _, err := domain.ParseClock(timeStart); err != nil {
		return nil, errors.New("invalid start time (HH:MM)")
	}
	if timeEnd != "" {
		if _, _, err := domain.ParseClock(timeEnd); err != nil {
			return nil, errors.New("invalid end time (HH:MM)")
		}
	}
	if len(days) == 0 {
		return nil, errors.New("at least one weekday is required")
	}
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", d)
		}
	}
	if semesterStart.IsZero() || semesterEnd.IsZero() {
		return nil, errors.New("semester start and end are required")
	}
	if semesterEnd.Before(semesterStart) {
		return nil, errors.New("semester end precedes semester start")
	}

	entry := &domain.TimetableEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Course:        course,
		Location:      location,
		TimeStart:     timeStart,
		TimeEnd:       timeEnd,
		SemesterStart: semesterStart,
		SemesterEnd:   semesterEnd,
	}
	entry.SetWeekdays(days)

	if err := s.storage.CreateTimetableEntry(entry); err != nil {
		return nil, storageErr("create timetable entry", err)
	}

	return entry, nil
}

func (s *TimetableService) List(userID int64) ([]*domain.TimetableEntry, error) {
	entries, err := s.storage.ListTimetableByUser(userID)
	if err != nil {
		return nil, storageErr("list timetable", err)
	}
	return entries, nil
}

func (s *TimetableService) Delete(id string, userID int64) error {
	entry, err := s.storage.GetTimetableEntry(id)
	if err != nil {
		return storageErr("get timetable entry", err)
	}
	if entry == nil {
		return ErrNotFound
	}
	if entry.UserID != userID {
		return ErrAccessDenied
	}
	if err := s.storage.DeleteTimetableEntry(id); err != nil {
		return storageErr("delete timetable entry", err)
	}
	return nil
}

// ExportICS renders the user's timetable as an iCalendar document in the
// given zone. An empty timetable is rejected; no blob is produced.
func (s *TimetableService) ExportICS(userID int64, loc *time.Location) ([]byte, error) {
	entries, err := s.storage.ListTimetableByUser(userID)
	if err != nil {
		return nil, storageErr("list timetable", err)
	}
	return ics.Timetable(entries, loc)
}
