package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyplanner/config"
	"studyplanner/internal/api"
	"studyplanner/internal/clients/assist"
	"studyplanner/internal/clients/caldav"
	"studyplanner/internal/domain"
	"studyplanner/internal/scheduler"
	"studyplanner/internal/service"
	"studyplanner/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	user, err := ensureAccount(store, cfg)
	if err != nil {
		log.Fatalf("Failed to ensure account: %v", err)
	}

	assistClient := assist.NewClient(cfg.AssistURL, cfg.AssistToken)
	caldavClient := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
	if cfg.CalDAVCalendar != "" {
		caldavClient.SetCalendarPath(cfg.CalDAVCalendar)
	}

	taskSvc := service.NewTaskService(store)
	timetableSvc := service.NewTimetableService(store)
	suggestionSvc := service.NewSuggestionService(store, assistClient)
	calendarSvc := service.NewCalendarService(store, taskSvc, timetableSvc, caldavClient, cfg.Timezone)

	sched := scheduler.New(cfg, user.ID, taskSvc, calendarSvc)

	server := api.NewServer(cfg, user.ID, taskSvc, timetableSvc, suggestionSvc, calendarSvc)
	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		log.Printf("StudyPlanner listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}

	log.Println("StudyPlanner stopped")
}

// ensureAccount looks up the configured account, creating it on first run.
func ensureAccount(store *storage.Storage, cfg *config.Config) (*domain.User, error) {
	user, err := store.GetUserByEmail(cfg.AccountEmail)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &domain.User{
		Email:    cfg.AccountEmail,
		Name:     cfg.AccountName,
		Timezone: cfg.Timezone.String(),
	}
	if err := store.CreateUser(user); err != nil {
		return nil, err
	}
	log.Printf("Created account %s (user %d)", user.Email, user.ID)
	return user, nil
}
