// Package suggest implements the rule-based task suggestion heuristics:
// static time-of-day and keyword tables, no model.
package suggest

import (
	"strings"
	"time"

	"studyplanner/internal/domain"
)

// Suggestion is one proposed task with the rule that produced it.
type Suggestion struct {
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Priority domain.Priority `json:"priority"`
	Reason   string          `json:"reason"`
}

// keywordRule maps title keywords to a category and priority.
type keywordRule struct {
	keywords []string
	category string
	priority domain.Priority
}

var keywordRules = []keywordRule{
	{[]string{"exam", "final", "midterm", "quiz", "test"}, "exams", domain.PriorityHigh},
	{[]string{"deadline", "due", "submit", "submission"}, "assignments", domain.PriorityHigh},
	{[]string{"assignment", "homework", "problem set", "lab report", "essay"}, "assignments", domain.PriorityMedium},
	{[]string{"lecture", "class", "seminar", "tutorial"}, "classes", domain.PriorityMedium},
	{[]string{"read", "reading", "chapter", "review", "notes"}, "study", domain.PriorityLow},
	{[]string{"gym", "run", "workout", "sport"}, "personal", domain.PriorityLow},
}

// Classify resolves the category and priority a new task should default to,
// based on keyword matches against its title. Unmatched titles fall back to
// the "general" category at medium priority.
func Classify(title string) (category string, priority domain.Priority) {
	lower := strings.ToLower(title)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category, rule.priority
			}
		}
	}
	return "general", domain.PriorityMedium
}

// ForTime returns the canned suggestions for the given local time of day.
func ForTime(now time.Time) []Suggestion {
	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		return []Suggestion{
			{Title: "Review today's class schedule", Category: "classes", Priority: domain.PriorityMedium, Reason: "morning planning"},
			{Title: "Pick the day's top assignment", Category: "assignments", Priority: domain.PriorityHigh, Reason: "morning planning"},
		}
	case hour >= 12 && hour < 18:
		return []Suggestion{
			{Title: "Work on the next due assignment", Category: "assignments", Priority: domain.PriorityHigh, Reason: "afternoon focus block"},
			{Title: "Review lecture notes from today", Category: "study", Priority: domain.PriorityMedium, Reason: "afternoon focus block"},
		}
	case hour >= 18 && hour < 23:
		return []Suggestion{
			{Title: "Prepare materials for tomorrow's classes", Category: "classes", Priority: domain.PriorityMedium, Reason: "evening wrap-up"},
			{Title: "Plan tomorrow's study session", Category: "study", Priority: domain.PriorityLow, Reason: "evening wrap-up"},
		}
	default:
		return []Suggestion{
			{Title: "Get some rest before tomorrow", Category: "personal", Priority: domain.PriorityLow, Reason: "late night"},
		}
	}
}

// ForOccurrences proposes follow-ups for overdue occurrences in the list.
func ForOccurrences(occs []domain.Occurrence, now time.Time) []Suggestion {
	var out []Suggestion
	for _, o := range occs {
		if o.Done || !o.Due.Before(now) {
			continue
		}
		out = append(out, Suggestion{
			Title:    "Catch up: " + o.Title,
			Category: o.Category,
			Priority: domain.PriorityHigh,
			Reason:   "overdue since " + domain.DateKey(o.Due),
		})
	}
	return out
}
