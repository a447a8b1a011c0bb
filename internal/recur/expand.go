// Package recur expands recurring master tasks into concrete occurrences
// inside a display window. Expansion is a pure function of the master, the
// window and the master's completion-override map.
package recur

import (
	"errors"
	"log"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"studyplanner/internal/domain"
)

// maxOccurrencesPerMaster caps expansion of a single master so a pathological
// rule cannot produce an unbounded occurrence list.
const maxOccurrencesPerMaster = 1000

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) valid() bool {
	return !w.End.Before(w.Start)
}

// Expand enumerates the occurrences of a single master task falling inside
// the window, in ascending date order. A non-recurring master yields at most
// its own due date. The resulting occurrences carry stable ids derived from
// (master id, occurrence date) and completion flags resolved against the
// master's override map.
func Expand(task *domain.Task, w Window) ([]domain.Occurrence, error) {
	if task == nil {
		return nil, errors.New("expand: task is nil")
	}
	if !w.valid() {
		return nil, errors.New("expand: window end is before window start")
	}
	if task.DueDate.IsZero() {
		return nil, errors.New("expand: task has no due date")
	}

	if !task.Recurs() {
		if task.DueDate.Before(w.Start) || task.DueDate.After(w.End) {
			return nil, nil
		}
		return []domain.Occurrence{makeOccurrence(task, task.DueDate)}, nil
	}

	rule := task.Repeat
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	freq, err := rruleFreq(rule.Frequency)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: rule.Interval,
		Dtstart:  task.DueDate,
	}
	if rule.Count > 0 {
		opt.Count = rule.Count
	}
	if rule.Until != nil {
		opt.Until = *rule.Until
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}

	// Between with inclusive bounds also covers the off-by-one case where
	// the master's due date precedes the window by less than one step: the
	// iterator starts from Dtstart, not from the window edge.
	times := r.Between(w.Start, w.End, true)
	if len(times) > maxOccurrencesPerMaster {
		log.Printf("recur: task %d occurrence cap reached (%d), truncating", task.ID, maxOccurrencesPerMaster)
		times = times[:maxOccurrencesPerMaster]
	}

	occs := make([]domain.Occurrence, 0, len(times))
	for _, due := range times {
		occs = append(occs, makeOccurrence(task, due))
	}
	return occs, nil
}

// ExpandAll expands every master into the window and returns the merged
// occurrence list in ascending date order. A master that fails to expand is
// logged and skipped; it never aborts enumeration of its siblings.
func ExpandAll(tasks []*domain.Task, w Window) []domain.Occurrence {
	var all []domain.Occurrence
	for _, t := range tasks {
		occs, err := Expand(t, w)
		if err != nil {
			log.Printf("recur: skipping task %d: %v", t.ID, err)
			continue
		}
		all = append(all, occs...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Due.Equal(all[j].Due) {
			return all[i].TaskID < all[j].TaskID
		}
		return all[i].Due.Before(all[j].Due)
	})
	return all
}

func makeOccurrence(task *domain.Task, due time.Time) domain.Occurrence {
	return domain.Occurrence{
		ID:       domain.OccurrenceID(task.ID, due),
		TaskID:   task.ID,
		Title:    task.Title,
		Category: task.Category,
		Priority: task.Priority,
		Due:      due,
		Done:     task.OccurrenceDone(due),
	}
}

func rruleFreq(f domain.Frequency) (rrule.Frequency, error) {
	switch f {
	case domain.FreqDaily:
		return rrule.DAILY, nil
	case domain.FreqWeekly:
		return rrule.WEEKLY, nil
	case domain.FreqMonthly:
		return rrule.MONTHLY, nil
	case domain.FreqYearly:
		return rrule.YEARLY, nil
	}
	return 0, errors.New("no rrule frequency for " + string(f))
}
