package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"studyplanner/internal/domain"
)

// Request/response types

type RecurrenceRequest struct {
	Frequency string  `json:"frequency"`
	Interval  int     `json:"interval,omitempty"`
	Count     int     `json:"count,omitempty"`
	Until     *string `json:"until,omitempty"` // "2006-01-02"
}

type TaskRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Category    string             `json:"category,omitempty"`
	Priority    string             `json:"priority,omitempty"`
	DueDate     string             `json:"due_date"` // RFC 3339
	Completed   bool               `json:"completed,omitempty"`
	Repeat      *RecurrenceRequest `json:"repeat,omitempty"`
}

type TaskResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Category    string             `json:"category"`
	Priority    string             `json:"priority"`
	DueDate     string             `json:"due_date"`
	Completed   bool               `json:"completed"`
	Repeat      *RecurrenceRequest `json:"repeat,omitempty"`
	CreatedAt   string             `json:"created_at"`
}

type OccurrenceResponse struct {
	ID       string `json:"id"`
	TaskID   int64  `json:"task_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Due      string `json:"due"`
	Done     bool   `json:"done"`
}

type TimetableRequest struct {
	Course        string `json:"course"`
	Location      string `json:"location,omitempty"`
	TimeStart     string `json:"time_start"` // "HH:MM"
	TimeEnd       string `json:"time_end,omitempty"`
	Days          []int  `json:"days"` // 0 = Sunday
	SemesterStart string `json:"semester_start"` // "2006-01-02"
	SemesterEnd   string `json:"semester_end"`
}

type CalendarResponse struct {
	Path        string `json:"path"`
	DisplayName string `json:"display_name,omitempty"`
}

type TimetableResponse struct {
	ID            string `json:"id"`
	Course        string `json:"course"`
	Location      string `json:"location,omitempty"`
	TimeStart     string `json:"time_start"`
	TimeEnd       string `json:"time_end,omitempty"`
	Days          []int  `json:"days"`
	SemesterStart string `json:"semester_start"`
	SemesterEnd   string `json:"semester_end"`
}

// Tasks

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	includeDone := r.URL.Query().Get("include_done") == "1"
	tasks, err := s.tasks.List(s.userID, includeDone)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t))
	}
	respondData(w, out)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	due, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid due_date: %w", err))
		return
	}

	rule, err := ruleFromRequest(req.Repeat)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	task, err := s.tasks.Create(s.userID, req.Title, req.Description, due, domain.Priority(req.Priority), req.Category, rule)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, taskToResponse(task))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	task, err := s.tasks.Get(id, s.userID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, taskToResponse(task))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	due, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid due_date: %w", err))
		return
	}

	rule, err := ruleFromRequest(req.Repeat)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	task := &domain.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    domain.Priority(req.Priority),
		DueDate:     due,
		Completed:   req.Completed,
		Repeat:      rule,
	}
	if err := s.tasks.Update(s.userID, task); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, taskToResponse(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.tasks.Delete(id, s.userID); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, nil)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	task, err := s.tasks.ToggleCompleted(id, s.userID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, taskToResponse(task))
}

func (s *Server) handleToggleOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	date, err := domain.ParseDateKey(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid occurrence date: %w", err))
		return
	}
	occ, err := s.tasks.ToggleOccurrence(id, s.userID, date)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, occurrenceToResponse(*occ))
}

// Occurrences / agenda

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	from, to, err := windowParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	occs, err := s.tasks.Occurrences(s.userID, from, to)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	out := make([]OccurrenceResponse, 0, len(occs))
	for _, o := range occs {
		out = append(out, occurrenceToResponse(o))
	}
	respondData(w, out)
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	from, to, err := windowParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.calendar.Agenda(s.userID, from, to)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, items)
}

// Timetable

func (s *Server) handleListTimetable(w http.ResponseWriter, r *http.Request) {
	entries, err := s.timetable.List(s.userID)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	out := make([]TimetableResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, timetableToResponse(e))
	}
	respondData(w, out)
}

func (s *Server) handleCreateTimetable(w http.ResponseWriter, r *http.Request) {
	var req TimetableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	semStart, err := domain.ParseDateKey(req.SemesterStart)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid semester_start: %w", err))
		return
	}
	semEnd, err := domain.ParseDateKey(req.SemesterEnd)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid semester_end: %w", err))
		return
	}

	days := make([]time.Weekday, 0, len(req.Days))
	for _, d := range req.Days {
		days = append(days, time.Weekday(d))
	}

	entry, err := s.timetable.Create(s.userID, req.Course, req.Location, req.TimeStart, req.TimeEnd, days, semStart, semEnd)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, timetableToResponse(entry))
}

func (s *Server) handleDeleteTimetable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.timetable.Delete(id, s.userID); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, nil)
}

func (s *Server) handleExportTimetable(w http.ResponseWriter, r *http.Request) {
	loc, err := s.exportLocation(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	blob, err := s.timetable.ExportICS(s.userID, loc)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	writeICS(w, "timetable.ics", blob)
}

func (s *Server) handleExportTasks(w http.ResponseWriter, r *http.Request) {
	loc, err := s.exportLocation(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	blob, err := s.tasks.ExportICS(s.userID, loc)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	writeICS(w, "tasks.ics", blob)
}

// exportLocation resolves the display zone for an ICS download: the config
// zone unless the request overrides it with ?tz=.
func (s *Server) exportLocation(r *http.Request) (*time.Location, error) {
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid tz: %w", err)
		}
		return loc, nil
	}
	return s.cfg.Timezone, nil
}

func writeICS(w http.ResponseWriter, filename string, blob []byte) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// Calendars

func (s *Server) handleDiscoverCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := s.calendar.Calendars(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	out := make([]CalendarResponse, 0, len(cals))
	for _, c := range cals {
		out = append(out, CalendarResponse{Path: c.Path, DisplayName: c.DisplayName})
	}
	respondData(w, out)
}

// Suggestions

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.cfg.Timezone)
	suggestions, err := s.suggestions.Suggest(r.Context(), s.userID, now)
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	respondData(w, suggestions)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		respondError(w, http.StatusBadRequest, errors.New("title query parameter is required"))
		return
	}
	category, priority := s.suggestions.Classify(title)
	respondData(w, map[string]string{
		"category": category,
		"priority": string(priority),
	})
}

// Helpers

func taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id: %w", err)
	}
	return id, nil
}

func windowParams(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	from, err = time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err = time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
	}
	return from, to, nil
}

func taskToResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate.Format(time.RFC3339),
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.Repeat != nil {
		rr := &RecurrenceRequest{
			Frequency: string(t.Repeat.Frequency),
			Interval:  t.Repeat.Interval,
			Count:     t.Repeat.Count,
		}
		if t.Repeat.Until != nil {
			until := domain.DateKey(*t.Repeat.Until)
			rr.Until = &until
		}
		resp.Repeat = rr
	}
	return resp
}

func occurrenceToResponse(o domain.Occurrence) OccurrenceResponse {
	return OccurrenceResponse{
		ID:       o.ID,
		TaskID:   o.TaskID,
		Title:    o.Title,
		Category: o.Category,
		Priority: string(o.Priority),
		Due:      o.Due.Format(time.RFC3339),
		Done:     o.Done,
	}
}

func timetableToResponse(e *domain.TimetableEntry) TimetableResponse {
	days := make([]int, 0)
	for _, d := range e.Weekdays() {
		days = append(days, int(d))
	}
	return TimetableResponse{
		ID:            e.ID,
		Course:        e.Course,
		Location:      e.Location,
		TimeStart:     e.TimeStart,
		TimeEnd:       e.TimeEnd,
		Days:          days,
		SemesterStart: domain.DateKey(e.SemesterStart),
		SemesterEnd:   domain.DateKey(e.SemesterEnd),
	}
}

func ruleFromRequest(req *RecurrenceRequest) (*domain.RecurrenceRule, error) {
	if req == nil || req.Frequency == "" {
		return nil, nil
	}
	freq, ok := domain.ParseFrequency(req.Frequency)
	if !ok {
		return nil, fmt.Errorf("unknown frequency %q", req.Frequency)
	}
	rule := &domain.RecurrenceRule{
		Frequency: freq,
		Interval:  req.Interval,
		Count:     req.Count,
	}
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	if req.Until != nil {
		until, err := domain.ParseDateKey(*req.Until)
		if err != nil {
			return nil, fmt.Errorf("invalid until date: %w", err)
		}
		rule.Until = &until
	}
	return rule, nil
}
