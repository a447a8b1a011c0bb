package scheduler

import (
	"strings"
	"testing"
	"time"

	"studyplanner/internal/domain"
)

func TestMinuteHour(t *testing.T) {
	cases := []struct {
		clock string
		want  string
	}{
		{"08:00", "0 8"},
		{"07:30", "30 7"},
		{"23:59", "59 23"},
		{"garbage", "0 8"},
		{"25:00", "0 8"},
	}
	for _, tc := range cases {
		if got := minuteHour(tc.clock); got != tc.want {
			t.Errorf("minuteHour(%q) = %q, want %q", tc.clock, got, tc.want)
		}
	}
}

func TestDigestTextEmpty(t *testing.T) {
	text := digestText(nil, nil, nil)
	if !strings.Contains(text, "Nothing scheduled today") {
		t.Errorf("unexpected empty digest %q", text)
	}
}

func TestDigestText(t *testing.T) {
	due := time.Date(2025, 9, 8, 18, 0, 0, 0, time.UTC)
	occs := []domain.Occurrence{
		{Title: "Weekly reading", Due: due},
	}

	entry := &domain.TimetableEntry{Course: "Algorithms", TimeStart: "09:00", TimeEnd: "10:30"}
	classes := []*domain.TimetableEntry{entry}

	events := []*domain.CalendarEvent{
		{Title: "Guest lecture", StartTime: due.Add(-4 * time.Hour), EndTime: due.Add(-3 * time.Hour)},
		{Title: "Career fair", AllDay: true},
	}

	text := digestText(occs, classes, events)

	for _, want := range []string{
		"Algorithms (09:00-10:30)",
		"Weekly reading (18:00)",
		"Guest lecture (14:00-15:00)",
		"Career fair (all day)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
}
