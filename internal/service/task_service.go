package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"studyplanner/internal/domain"
	"studyplanner/internal/ics"
	"studyplanner/internal/recur"
	"studyplanner/internal/storage"
	"studyplanner/internal/suggest"
)

type TaskService struct {
	storage *storage.Storage
}

func NewTaskService(s *storage.Storage) *TaskService {
	return &TaskService{storage: s}
}

// Create validates and persists a new task. An empty category or priority
// is filled in from the keyword heuristics so form autofill and direct API
// calls agree.
func (s *TaskService) Create(userID int64, title, description string, due time.Time, priority domain.Priority, category string, rule *domain.RecurrenceRule) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("task title cannot be empty")
	}
	if due.IsZero() {
		return nil, errors.New("task due date is required")
	}

	suggestedCategory, suggestedPriority := suggest.Classify(title)
	if priority == "" {
		priority = suggestedPriority
	} else if !domain.ValidPriority(priority) {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}
	if category == "" {
		category = suggestedCategory
	}

	if rule != nil {
		if rule.Interval == 0 {
			rule.Interval = 1
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if rule.Until != nil && rule.Until.Before(due) {
			return nil, errors.New("recurrence end date precedes the due date")
		}
	}

	task := &domain.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		DueDate:     due,
		Repeat:      rule,
	}

	if err := s.storage.CreateTask(task); err != nil {
		return nil, storageErr("create task", err)
	}

	return task, nil
}

func (s *TaskService) List(userID int64, includeDone bool) ([]*domain.Task, error) {
	tasks, err := s.storage.ListTasksByUser(userID, includeDone)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(taskID, userID int64) (*domain.Task, error) {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if task.UserID != userID {
		return nil, ErrAccessDenied
	}
	return task, nil
}

// Update replaces the mutable fields of a task, including an explicit edit
// of its recurrence rule.
func (s *TaskService) Update(userID int64, task *domain.Task) error {
	existing, err := s.Get(task.ID, userID)
	if err != nil {
		return err
	}

	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return errors.New("task title cannot be empty")
	}
	if !domain.ValidPriority(task.Priority) {
		return fmt.Errorf("unknown priority %q", task.Priority)
	}
	if task.Repeat != nil {
		if err := task.Repeat.Validate(); err != nil {
			return err
		}
		if task.Repeat.Until != nil && task.Repeat.Until.Before(task.DueDate) {
			return errors.New("recurrence end date precedes the due date")
		}
	}

	task.UserID = existing.UserID
	task.CreatedAt = existing.CreatedAt
	if task.CompletionOverrides == nil {
		task.CompletionOverrides = existing.CompletionOverrides
	}

	if err := s.storage.UpdateTask(task); err != nil {
		return storageErr("update task", err)
	}
	return nil
}

// ToggleCompleted flips the master's own completion flag. Occurrence
// overrides are left alone.
func (s *TaskService) ToggleCompleted(taskID, userID int64) (*domain.Task, error) {
	task, err := s.Get(taskID, userID)
	if err != nil {
		return nil, err
	}
	task.Completed = !task.Completed
	if err := s.storage.SetTaskCompleted(taskID, task.Completed); err != nil {
		return nil, storageErr("toggle task", err)
	}
	return task, nil
}

// ToggleOccurrence flips the completion state of a single occurrence of a
// recurring master. Only that occurrence's date key is written; the master
// flag and all sibling occurrences stay untouched.
func (s *TaskService) ToggleOccurrence(taskID, userID int64, date time.Time) (*domain.Occurrence, error) {
	task, err := s.Get(taskID, userID)
	if err != nil {
		return nil, err
	}

	resolved := task.OccurrenceDone(date)
	if task.CompletionOverrides == nil {
		task.CompletionOverrides = make(map[string]bool)
	}
	task.CompletionOverrides[domain.DateKey(date)] = !resolved

	if err := s.storage.SetCompletionOverrides(taskID, task.CompletionOverrides); err != nil {
		return nil, storageErr("save overrides", err)
	}

	occ := domain.Occurrence{
		ID:       domain.OccurrenceID(taskID, date),
		TaskID:   taskID,
		Title:    task.Title,
		Category: task.Category,
		Priority: task.Priority,
		Due:      date,
		Done:     !resolved,
	}
	return &occ, nil
}

func (s *TaskService) Delete(taskID, userID int64) error {
	if _, err := s.Get(taskID, userID); err != nil {
		return err
	}
	if err := s.storage.DeleteTask(taskID); err != nil {
		return storageErr("delete task", err)
	}
	return nil
}

// ExportICS renders the user's open tasks as an iCalendar document in the
// given zone. Recurring masters carry the equivalent RRULE.
func (s *TaskService) ExportICS(userID int64, loc *time.Location) ([]byte, error) {
	tasks, err := s.storage.ListTasksByUser(userID, false)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	return ics.Tasks(tasks, loc)
}

// Occurrences expands the user's tasks into concrete occurrences inside the
// inclusive [from, to] window, ordered by date. Masters with invalid rules
// are skipped, not fatal.
func (s *TaskService) Occurrences(userID int64, from, to time.Time) ([]domain.Occurrence, error) {
	if to.Before(from) {
		return nil, errors.New("window end precedes window start")
	}
	masters, err := s.storage.ListTasksForWindow(userID, from, to)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	return recur.ExpandAll(masters, recur.Window{Start: from, End: to}), nil
}
