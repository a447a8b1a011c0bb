package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"studyplanner/config"
	"studyplanner/internal/domain"
	"studyplanner/internal/service"
)

// Notifier delivers digest messages to the user. The default implementation
// logs; a push or mail transport can be plugged in without touching the jobs.
type Notifier interface {
	Notify(userID int64, text string) error
}

// LogNotifier writes digests to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(userID int64, text string) error {
	log.Printf("notify user %d: %s", userID, text)
	return nil
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	userID   int64
	tasks    *service.TaskService
	calendar *service.CalendarService
	notifier Notifier
}

func New(cfg *config.Config, userID int64, tasks *service.TaskService, calendar *service.CalendarService) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		userID:   userID,
		tasks:    tasks,
		calendar: calendar,
		notifier: LogNotifier{},
	}
}

func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Morning digest of the day's occurrences
	morningSpec := fmt.Sprintf("%s * * *", minuteHour(s.cfg.MorningTime))
	if _, err := s.cron.AddFunc(morningSpec, s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	// Periodic CalDAV subscription refresh
	if s.calendar.IsSyncConfigured() {
		if _, err := s.cron.AddFunc(s.cfg.SyncCron, func() { s.syncCalendar(ctx) }); err != nil {
			return fmt.Errorf("add calendar sync: %w", err)
		}
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, morning: %s, sync: %s)",
		s.cfg.Timezone, s.cfg.MorningTime, s.cfg.SyncCron)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) morningDigest() {
	now := time.Now().In(s.cfg.Timezone)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Timezone)
	to := from.Add(24*time.Hour - time.Second)

	occs, err := s.tasks.Occurrences(s.userID, from, to)
	if err != nil {
		log.Printf("Error building morning digest: %v", err)
		return
	}

	// Classes and events are best-effort additions to the digest.
	classes, err := s.calendar.TodayClasses(s.userID, now)
	if err != nil {
		log.Printf("Error listing today's classes: %v", err)
	}
	events, err := s.calendar.TodayEvents(s.userID, now)
	if err != nil {
		log.Printf("Error listing today's events: %v", err)
	}

	if err := s.notifier.Notify(s.userID, digestText(occs, classes, events)); err != nil {
		log.Printf("Error sending morning digest: %v", err)
	}
}

// digestText renders the morning summary of classes, due tasks and external
// events for one day.
func digestText(occs []domain.Occurrence, classes []*domain.TimetableEntry, events []*domain.CalendarEvent) string {
	text := "Good morning!"
	if len(occs) == 0 && len(classes) == 0 && len(events) == 0 {
		return text + " Nothing scheduled today."
	}

	if len(classes) > 0 {
		text += fmt.Sprintf("\n%d class(es) today:", len(classes))
		for _, e := range classes {
			text += fmt.Sprintf("\n- %s (%s)", e.Course, e.TimeRange())
		}
	}
	if len(occs) > 0 {
		text += fmt.Sprintf("\n%d task(s) due today:", len(occs))
		for _, o := range occs {
			text += fmt.Sprintf("\n- %s (%s)", o.Title, o.Due.Format("15:04"))
		}
	}
	if len(events) > 0 {
		text += fmt.Sprintf("\n%d calendar event(s):", len(events))
		for _, ev := range events {
			text += fmt.Sprintf("\n- %s (%s)", ev.Title, ev.FormatTime())
		}
	}
	return text
}

func (s *Scheduler) syncCalendar(ctx context.Context) {
	if err := s.calendar.Sync(ctx, s.userID); err != nil {
		log.Printf("Error syncing calendar: %v", err)
	}
}

// minuteHour converts "HH:MM" to the "MM HH" cron fragment. Cron specs take
// the minute field first. Config validates the clock at load time; the
// fallback covers callers constructing a config by hand.
func minuteHour(clock string) string {
	hh, mm, err := domain.ParseClock(clock)
	if err != nil {
		log.Printf("Invalid morning time %q, using 08:00", clock)
		return "0 8"
	}
	return fmt.Sprintf("%d %d", mm, hh)
}
