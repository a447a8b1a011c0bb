package recur

import (
	"testing"
	"time"

	"studyplanner/internal/domain"
)

func weeklyTask(id int64, due time.Time) *domain.Task {
	return &domain.Task{
		ID:       id,
		Title:    "weekly task",
		Priority: domain.PriorityMedium,
		DueDate:  due,
		Repeat:   &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 1},
	}
}

func TestExpandWeeklyOneWeekWindow(t *testing.T) {
	due := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) // Monday
	task := weeklyTask(1, due)

	w := Window{Start: due, End: due.AddDate(0, 0, 6)}
	occs, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}
	if !occs[0].Due.Equal(due) {
		t.Errorf("expected occurrence at %v, got %v", due, occs[0].Due)
	}
}

func TestExpandStableIDs(t *testing.T) {
	due := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	task := weeklyTask(7, due)
	w := Window{Start: due, End: due.AddDate(0, 0, 20)}

	first, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	second, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expansion not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("occurrence %d id changed: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID != domain.OccurrenceID(7, due) {
		t.Errorf("unexpected id %q", first[0].ID)
	}
}

func TestExpandCountLimit(t *testing.T) {
	due := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	task := &domain.Task{
		ID:      2,
		Title:   "count task",
		DueDate: due,
		Repeat:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Count: 3},
	}

	// Window far larger than the series: count still wins.
	w := Window{Start: due.AddDate(0, -1, 0), End: due.AddDate(1, 0, 0)}
	occs, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	for i, o := range occs {
		want := due.AddDate(0, 0, i)
		if !o.Due.Equal(want) {
			t.Errorf("occurrence %d at %v, want %v", i, o.Due, want)
		}
	}
}

func TestExpandUntilDate(t *testing.T) {
	due := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	until := due.AddDate(0, 0, 2)
	task := &domain.Task{
		ID:      3,
		DueDate: due,
		Repeat:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1, Until: &until},
	}

	w := Window{Start: due, End: due.AddDate(0, 1, 0)}
	occs, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences up to the end date, got %d", len(occs))
	}
}

func TestExpandDueBeforeWindow(t *testing.T) {
	due := time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC)
	task := &domain.Task{
		ID:      4,
		DueDate: due,
		Repeat:  &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
	}

	// Window starts three days into the series; the first in-window
	// occurrence must land exactly on the window start.
	start := due.AddDate(0, 0, 3)
	w := Window{Start: start, End: start.AddDate(0, 0, 1)}
	occs, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences, got %d", len(occs))
	}
	if !occs[0].Due.Equal(start) {
		t.Errorf("first occurrence at %v, want %v", occs[0].Due, start)
	}
}

func TestExpandNonRecurring(t *testing.T) {
	due := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	task := &domain.Task{ID: 5, DueDate: due}

	in := Window{Start: due.AddDate(0, 0, -1), End: due.AddDate(0, 0, 1)}
	occs, err := Expand(task, in)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(occs))
	}

	out := Window{Start: due.AddDate(0, 0, 1), End: due.AddDate(0, 0, 2)}
	occs, err = Expand(task, out)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 0 {
		t.Fatalf("expected no occurrences outside the window, got %d", len(occs))
	}
}

func TestExpandResolvesOverrides(t *testing.T) {
	due := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	task := weeklyTask(6, due)
	second := due.AddDate(0, 0, 7)
	task.CompletionOverrides = map[string]bool{domain.DateKey(second): true}

	w := Window{Start: due, End: due.AddDate(0, 0, 20)}
	occs, err := Expand(task, w)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(occs))
	}
	if occs[0].Done || occs[2].Done {
		t.Error("occurrences without overrides must inherit the master flag")
	}
	if !occs[1].Done {
		t.Error("overridden occurrence must report its own completion state")
	}
	if task.Completed {
		t.Error("master completion flag must not change during expansion")
	}
}

func TestExpandAllSkipsInvalidMaster(t *testing.T) {
	due := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	bad := &domain.Task{
		ID:      10,
		DueDate: due,
		Repeat:  &domain.RecurrenceRule{Frequency: domain.FreqWeekly, Interval: 0},
	}
	good := weeklyTask(11, due)

	w := Window{Start: due, End: due.AddDate(0, 0, 6)}
	occs := ExpandAll([]*domain.Task{bad, good}, w)
	if len(occs) != 1 {
		t.Fatalf("expected the valid master's occurrence only, got %d", len(occs))
	}
	if occs[0].TaskID != 11 {
		t.Errorf("unexpected task id %d", occs[0].TaskID)
	}
}

func TestExpandAllOrdering(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	a := weeklyTask(1, base.AddDate(0, 0, 1))
	b := weeklyTask(2, base)

	w := Window{Start: base, End: base.AddDate(0, 0, 13)}
	occs := ExpandAll([]*domain.Task{a, b}, w)
	for i := 1; i < len(occs); i++ {
		if occs[i].Due.Before(occs[i-1].Due) {
			t.Fatalf("occurrences out of order at %d: %v before %v", i, occs[i].Due, occs[i-1].Due)
		}
	}
}
