package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studyplanner/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			timezone TEXT NOT NULL DEFAULT 'UTC',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			category TEXT DEFAULT '',
			priority TEXT DEFAULT 'medium',
			due_date DATETIME NOT NULL,
			completed INTEGER DEFAULT 0,
			repeat_frequency TEXT DEFAULT '',
			repeat_interval INTEGER DEFAULT 1,
			repeat_count INTEGER DEFAULT 0,
			repeat_until DATETIME,
			completion_overrides TEXT DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date)`,
		`CREATE TABLE IF NOT EXISTS timetable_entries (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			course TEXT NOT NULL,
			location TEXT DEFAULT '',
			time_start TEXT NOT NULL,
			time_end TEXT DEFAULT '',
			days TEXT NOT NULL,
			semester_start DATETIME NOT NULL,
			semester_end DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_timetable_user_id ON timetable_entries(user_id)`,
		`CREATE TABLE IF NOT EXISTS calendar_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			uid TEXT UNIQUE,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			location TEXT DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			all_day INTEGER DEFAULT 0,
			synced_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_start ON calendar_events(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_uid ON calendar_events(uid)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Users ===

func (s *Storage) CreateUser(u *domain.User) error {
	res, err := s.db.Exec(
		`INSERT INTO users (email, name, timezone) VALUES (?, ?, ?)`,
		u.Email, u.Name, u.Timezone,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.ID = id
	u.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetUserByEmail(email string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(
		`SELECT id, email, name, timezone, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Timezone, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *Storage) GetUserByID(id int64) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(
		`SELECT id, email, name, timezone, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.Timezone, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// === Tasks ===

const taskColumns = `id, user_id, title, description, category, priority, due_date, completed,
	repeat_frequency, repeat_interval, repeat_count, repeat_until, completion_overrides, created_at`

func (s *Storage) CreateTask(t *domain.Task) error {
	freq, interval, count, until := recurrenceColumns(t.Repeat)
	overrides, err := marshalOverrides(t.CompletionOverrides)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`INSERT INTO tasks (user_id, title, description, category, priority, due_date, completed,
			repeat_frequency, repeat_interval, repeat_count, repeat_until, completion_overrides)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Title, t.Description, t.Category, t.Priority, t.DueDate, t.Completed,
		freq, interval, count, until, overrides,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	t.ID = id
	t.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetTask(id int64) (*domain.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Storage) ListTasksByUser(userID int64, includeDone bool) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	if !includeDone {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY due_date, id`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListTasksForWindow returns the masters that can produce occurrences inside
// [from, to]: recurring tasks whose series has started by the window end,
// plus non-recurring tasks due inside the window.
func (s *Storage) ListTasksForWindow(userID int64, from, to time.Time) ([]*domain.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = ? AND due_date <= ? AND (repeat_frequency != '' OR due_date >= ?)
		 ORDER BY due_date, id`,
		userID, to, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *Storage) UpdateTask(t *domain.Task) error {
	freq, interval, count, until := recurrenceColumns(t.Repeat)
	overrides, err := marshalOverrides(t.CompletionOverrides)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, category = ?, priority = ?, due_date = ?,
			completed = ?, repeat_frequency = ?, repeat_interval = ?, repeat_count = ?,
			repeat_until = ?, completion_overrides = ?
		 WHERE id = ?`,
		t.Title, t.Description, t.Category, t.Priority, t.DueDate,
		t.Completed, freq, interval, count, until, overrides, t.ID,
	)
	return err
}

func (s *Storage) SetTaskCompleted(id int64, completed bool) error {
	_, err := s.db.Exec(`UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
	return err
}

// SetCompletionOverrides replaces the per-occurrence override map of a task
// without touching the master's own completion flag.
func (s *Storage) SetCompletionOverrides(id int64, overrides map[string]bool) error {
	data, err := marshalOverrides(overrides)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE tasks SET completion_overrides = ? WHERE id = ?`, data, id)
	return err
}

func (s *Storage) DeleteTask(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	t := &domain.Task{}
	var freq string
	var interval, count int
	var until *time.Time
	var overrides string

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category, &t.Priority,
		&t.DueDate, &t.Completed, &freq, &interval, &count, &until, &overrides, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if freq != "" {
		f, ok := domain.ParseFrequency(freq)
		if !ok {
			return nil, fmt.Errorf("task %d: unknown frequency %q", t.ID, freq)
		}
		t.Repeat = &domain.RecurrenceRule{
			Frequency: f,
			Interval:  interval,
			Count:     count,
			Until:     until,
		}
	}

	if overrides != "" && overrides != "{}" {
		if err := json.Unmarshal([]byte(overrides), &t.CompletionOverrides); err != nil {
			return nil, fmt.Errorf("task %d: decode overrides: %w", t.ID, err)
		}
	}

	return t, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func recurrenceColumns(r *domain.RecurrenceRule) (freq string, interval, count int, until *time.Time) {
	if r == nil {
		return "", 1, 0, nil
	}
	return string(r.Frequency), r.Interval, r.Count, r.Until
}

func marshalOverrides(overrides map[string]bool) (string, error) {
	if len(overrides) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return "", fmt.Errorf("encode overrides: %w", err)
	}
	return string(data), nil
}

// === Timetable ===

func (s *Storage) CreateTimetableEntry(e *domain.TimetableEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO timetable_entries (id, user_id, course, location, time_start, time_end, days,
			semester_start, semester_end)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Course, e.Location, e.TimeStart, e.TimeEnd, e.Days,
		e.SemesterStart, e.SemesterEnd,
	)
	if err != nil {
		return err
	}
	e.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetTimetableEntry(id string) (*domain.TimetableEntry, error) {
	e := &domain.TimetableEntry{}
	err := s.db.QueryRow(
		`SELECT id, user_id, course, location, time_start, time_end, days,
			semester_start, semester_end, created_at
		 FROM timetable_entries WHERE id = ?`,
		id,
	).Scan(&e.ID, &e.UserID, &e.Course, &e.Location, &e.TimeStart, &e.TimeEnd, &e.Days,
		&e.SemesterStart, &e.SemesterEnd, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Storage) ListTimetableByUser(userID int64) ([]*domain.TimetableEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, course, location, time_start, time_end, days,
			semester_start, semester_end, created_at
		 FROM timetable_entries WHERE user_id = ? ORDER BY time_start, course`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TimetableEntry
	for rows.Next() {
		e := &domain.TimetableEntry{}
		err := rows.Scan(&e.ID, &e.UserID, &e.Course, &e.Location, &e.TimeStart, &e.TimeEnd,
			&e.Days, &e.SemesterStart, &e.SemesterEnd, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Storage) DeleteTimetableEntry(id string) error {
	_, err := s.db.Exec(`DELETE FROM timetable_entries WHERE id = ?`, id)
	return err
}

// === Calendar events ===

// UpsertCalendarEvent inserts the synced event or refreshes the stored copy
// when the UID is already known.
func (s *Storage) UpsertCalendarEvent(ev *domain.CalendarEvent) error {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO calendar_events (user_id, uid, title, description, location, start_time,
			end_time, all_day, synced_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			all_day = excluded.all_day,
			synced_at = excluded.synced_at,
			updated_at = excluded.updated_at`,
		ev.UserID, ev.UID, ev.Title, ev.Description, ev.Location, ev.StartTime,
		ev.EndTime, ev.AllDay, now, now,
	)
	return err
}

func (s *Storage) ListCalendarEventsBetween(userID int64, from, to time.Time) ([]*domain.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, uid, title, description, location, start_time, end_time,
			all_day, synced_at, created_at, updated_at
		 FROM calendar_events
		 WHERE user_id = ? AND start_time >= ? AND start_time <= ?
		 ORDER BY start_time`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.CalendarEvent
	for rows.Next() {
		ev := &domain.CalendarEvent{}
		err := rows.Scan(&ev.ID, &ev.UserID, &ev.UID, &ev.Title, &ev.Description, &ev.Location,
			&ev.StartTime, &ev.EndTime, &ev.AllDay, &ev.SyncedAt, &ev.CreatedAt, &ev.UpdatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
