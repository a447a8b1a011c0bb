package service

import (
	"context"
	"log"
	"time"

	"studyplanner/internal/clients/assist"
	"studyplanner/internal/domain"
	"studyplanner/internal/recur"
	"studyplanner/internal/storage"
	"studyplanner/internal/suggest"
)

// SuggestionService produces task suggestions. When a remote assist backend
// is configured it is consulted first; any failure falls back to the local
// rule tables so the feature degrades instead of erroring.
type SuggestionService struct {
	storage *storage.Storage
	client  *assist.Client
}

func NewSuggestionService(s *storage.Storage, client *assist.Client) *SuggestionService {
	return &SuggestionService{storage: s, client: client}
}

// Suggest returns suggestions for the user at the given local time.
func (s *SuggestionService) Suggest(ctx context.Context, userID int64, now time.Time) ([]suggest.Suggestion, error) {
	pending, err := s.storage.ListTasksByUser(userID, false)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}

	if s.client != nil && s.client.IsConfigured() {
		if remote, err := s.remoteSuggestions(ctx, pending, now); err == nil {
			return remote, nil
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			log.Printf("suggestion: assist backend failed, using local rules: %v", err)
		}
	}

	out := suggest.ForTime(now)

	// Catch-ups for occurrences left undone over the past week.
	week := recur.Window{Start: now.AddDate(0, 0, -7), End: now}
	out = append(out, suggest.ForOccurrences(recur.ExpandAll(pending, week), now)...)

	return out, nil
}

// Classify exposes the keyword heuristics for form autofill.
func (s *SuggestionService) Classify(title string) (category string, priority domain.Priority) {
	return suggest.Classify(title)
}

func (s *SuggestionService) remoteSuggestions(ctx context.Context, pending []*domain.Task, now time.Time) ([]suggest.Suggestion, error) {
	req := assist.SuggestionRequest{
		LocalTime: now.Format(time.RFC3339),
	}
	for _, t := range pending {
		req.PendingTitles = append(req.PendingTitles, t.Title)
	}

	remote, err := s.client.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([]suggest.Suggestion, 0, len(remote))
	for _, r := range remote {
		priority := domain.Priority(r.Priority)
		if !domain.ValidPriority(priority) {
			priority = domain.PriorityMedium
		}
		out = append(out, suggest.Suggestion{
			Title:    r.Title,
			Category: r.Category,
			Priority: priority,
			Reason:   r.Reason,
		})
	}
	return out, nil
}
