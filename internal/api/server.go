// Package api exposes the planner over HTTP for the web front-end.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"studyplanner/config"
	"studyplanner/internal/service"
)

// APIResponse is the JSON envelope for every endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type Server struct {
	cfg    *config.Config
	userID int64

	tasks       *service.TaskService
	timetable   *service.TimetableService
	suggestions *service.SuggestionService
	calendar    *service.CalendarService

	router *mux.Router
}

func NewServer(cfg *config.Config, userID int64, tasks *service.TaskService, timetable *service.TimetableService, suggestions *service.SuggestionService, calendar *service.CalendarService) *Server {
	s := &Server{
		cfg:         cfg,
		userID:      userID,
		tasks:       tasks,
		timetable:   timetable,
		suggestions: suggestions,
		calendar:    calendar,
		router:      mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler, wrapped with basic auth when the
// config carries API credentials. /health stays unauthenticated.
func (s *Server) Handler() http.Handler {
	if s.cfg.APIAuthEnabled() {
		return s.basicAuth(s.router)
	}
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/export", s.handleExportTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id:[0-9]+}/toggle", s.handleToggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id:[0-9]+}/occurrences/{date}/toggle", s.handleToggleOccurrence).Methods(http.MethodPost)

	api.HandleFunc("/occurrences", s.handleOccurrences).Methods(http.MethodGet)
	api.HandleFunc("/agenda", s.handleAgenda).Methods(http.MethodGet)
	api.HandleFunc("/calendars", s.handleDiscoverCalendars).Methods(http.MethodGet)

	api.HandleFunc("/timetable", s.handleListTimetable).Methods(http.MethodGet)
	api.HandleFunc("/timetable", s.handleCreateTimetable).Methods(http.MethodPost)
	api.HandleFunc("/timetable/export", s.handleExportTimetable).Methods(http.MethodGet)
	api.HandleFunc("/timetable/{id}", s.handleDeleteTimetable).Methods(http.MethodDelete)

	api.HandleFunc("/suggestions", s.handleSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/classify", s.handleClassify).Methods(http.MethodGet)
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !secureCompare(user, s.cfg.APIUsername) || !secureCompare(pass, s.cfg.APIPassword) {
			w.Header().Set("WWW-Authenticate", `Basic realm="StudyPlanner"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, APIResponse{Success: false, Error: err.Error()})
}

// statusFor maps service errors to HTTP status codes. Storage failures carry
// the ErrStorage tag and surface as server errors; anything else that is not
// a known sentinel is a validation error from the service layer.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
