package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"studyplanner/internal/clients/assist"
	"studyplanner/internal/domain"
	"studyplanner/internal/storage"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestUser(t *testing.T, s *storage.Storage) *domain.User {
	t.Helper()
	u := &domain.User{Email: "student@example.com", Name: "Student", Timezone: "UTC"}
	if err := s.CreateUser(u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestTaskCreateAutofill(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	due := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	task, err := svc.Create(u.ID, "Calculus final exam", "", due, "", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Category != "exams" {
		t.Errorf("category %q, want exams", task.Category)
	}
	if task.Priority != domain.PriorityHigh {
		t.Errorf("priority %q, want high", task.Priority)
	}
	if task.ID == 0 {
		t.Error("task id not assigned")
	}

	// Explicit fields win over the heuristics.
	task, err = svc.Create(u.ID, "Calculus final exam", "", due, domain.PriorityLow, "personal", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Category != "personal" || task.Priority != domain.PriorityLow {
		t.Errorf("explicit fields overridden: %s/%s", task.Category, task.Priority)
	}
}

func TestTaskCreateValidation(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	due := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	if _, err := svc.Create(u.ID, "   ", "", due, "", "", nil); err == nil {
		t.Error("blank title must be rejected")
	}
	if _, err := svc.Create(u.ID, "No due", "", time.Time{}, "", "", nil); err == nil {
		t.Error("zero due date must be rejected")
	}
	if _, err := svc.Create(u.ID, "Bad priority", "", due, "urgent", "", nil); err == nil {
		t.Error("unknown priority must be rejected")
	}

	before := due.AddDate(0, 0, -1)
	badRule := &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Until: &before}
	if _, err := svc.Create(u.ID, "Bad rule", "", due, "", "", badRule); err == nil {
		t.Error("recurrence end before due date must be rejected")
	}

	// Interval defaults to 1 when omitted.
	task, err := svc.Create(u.ID, "Weekly", "", due, "", "", &domain.RecurrenceRule{Frequency: domain.FreqWeekly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Repeat.Interval != 1 {
		t.Errorf("interval %d, want 1", task.Repeat.Interval)
	}
}

func TestTaskAccessControl(t *testing.T) {
	s := newTestStorage(t)
	owner := newTestUser(t, s)
	other := &domain.User{Email: "other@example.com", Timezone: "UTC"}
	if err := s.CreateUser(other); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	svc := NewTaskService(s)

	due := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	task, err := svc.Create(owner.ID, "Private task", "", due, "", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(task.ID, other.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.Get(99999, owner.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(task.ID, other.ID); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied on delete, got %v", err)
	}
}

func TestTaskUpdateValidation(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	due := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	task, err := svc.Create(u.ID, "Weekly reading", "", due, "", "", &domain.RecurrenceRule{Frequency: domain.FreqWeekly})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := due.AddDate(0, 0, -1)
	edit := &domain.Task{
		ID:       task.ID,
		Title:    task.Title,
		Priority: task.Priority,
		DueDate:  due,
		Repeat:   &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1, Until: &before},
	}
	if err := svc.Update(u.ID, edit); err == nil {
		t.Error("recurrence end before the due date must be rejected on edit")
	}

	edit.Repeat = &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1}
	if err := svc.Update(u.ID, edit); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestStorageFailuresTagged(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	due := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	task, err := svc.Create(u.ID, "Doomed", "", due, "", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Everything below hits a closed database.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := svc.List(u.ID, false); !errors.Is(err, ErrStorage) {
		t.Errorf("List: expected ErrStorage, got %v", err)
	}
	if _, err := svc.Get(task.ID, u.ID); !errors.Is(err, ErrStorage) {
		t.Errorf("Get: expected ErrStorage, got %v", err)
	}
	if _, err := svc.Create(u.ID, "Another", "", due, "", "", nil); !errors.Is(err, ErrStorage) {
		t.Errorf("Create: expected ErrStorage, got %v", err)
	}
}

func TestSuggestLocalFallback(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	tasks := NewTaskService(s)
	svc := NewSuggestionService(s, assist.NewClient("", ""))

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if _, err := tasks.Create(u.ID, "Overdue reading", "", now.AddDate(0, 0, -2), "", "", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := svc.Suggest(context.Background(), u.ID, now)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected local suggestions")
	}

	var catchUp bool
	for _, sug := range out {
		if strings.HasPrefix(sug.Title, "Catch up: Overdue reading") {
			catchUp = true
			if sug.Priority != domain.PriorityHigh {
				t.Errorf("catch-up priority %s, want high", sug.Priority)
			}
		}
	}
	if !catchUp {
		t.Error("overdue occurrence did not produce a catch-up suggestion")
	}
}

func TestToggleOccurrenceIsolation(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	due := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) // Monday
	task, err := svc.Create(u.ID, "Weekly reading", "", due, "", "", &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := due.AddDate(0, 0, 7)
	occ, err := svc.ToggleOccurrence(task.ID, u.ID, second)
	if err != nil {
		t.Fatalf("ToggleOccurrence: %v", err)
	}
	if !occ.Done {
		t.Error("toggled occurrence must be done")
	}

	reloaded, err := svc.Get(task.ID, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.Completed {
		t.Error("master completion flag must not change")
	}
	if len(reloaded.CompletionOverrides) != 1 {
		t.Fatalf("expected exactly one override, got %d", len(reloaded.CompletionOverrides))
	}

	occs, err := svc.Occurrences(u.ID, due, due.AddDate(0, 0, 20))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	if occs[0].Done || occs[2].Done {
		t.Error("sibling occurrences must stay untouched")
	}
	if !occs[1].Done {
		t.Error("toggled occurrence lost its state")
	}

	// Toggling again flips it back.
	occ, err = svc.ToggleOccurrence(task.ID, u.ID, second)
	if err != nil {
		t.Fatalf("ToggleOccurrence: %v", err)
	}
	if occ.Done {
		t.Error("second toggle must undo the first")
	}
}

func TestOccurrencesWindowValidation(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTaskService(s)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Occurrences(u.ID, from, from.AddDate(0, 0, -1)); err == nil {
		t.Error("inverted window must be rejected")
	}
}

func TestTimetableCreateValidation(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTimetableService(s)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)
	days := []time.Weekday{time.Monday}

	cases := []struct {
		name string
		fn   func() error
	}{
		{"empty course", func() error {
			_, err := svc.Create(u.ID, "", "", "09:00", "", days, start, end)
			return err
		}},
		{"bad start time", func() error {
			_, err := svc.Create(u.ID, "Algo", "", "9am", "", days, start, end)
			return err
		}},
		{"bad end time", func() error {
			_, err := svc.Create(u.ID, "Algo", "", "09:00", "ten", days, start, end)
			return err
		}},
		{"no weekdays", func() error {
			_, err := svc.Create(u.ID, "Algo", "", "09:00", "", nil, start, end)
			return err
		}},
		{"inverted semester", func() error {
			_, err := svc.Create(u.ID, "Algo", "", "09:00", "", days, end, start)
			return err
		}},
	}
	for _, tc := range cases {
		if tc.fn() == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	entry, err := svc.Create(u.ID, "Algorithms", "Room 204", "09:00", "10:30", days, start, end)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.ID == "" {
		t.Error("entry id not assigned")
	}

	entries, err := svc.List(u.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Course != "Algorithms" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestTimetableExportEmpty(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTimetableService(s)

	if _, err := svc.ExportICS(u.ID, time.UTC); err == nil {
		t.Fatal("empty timetable must not export")
	}
}

func TestTimetableDelete(t *testing.T) {
	s := newTestStorage(t)
	u := newTestUser(t, s)
	svc := NewTimetableService(s)

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)
	entry, err := svc.Create(u.ID, "Algo", "", "09:00", "", []time.Weekday{time.Monday}, start, end)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete("missing", u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(entry.ID, u.ID+1); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if err := svc.Delete(entry.ID, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := svc.List(u.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty timetable, got %d entries", len(entries))
	}
}
