package config

import (
	"fmt"
	"os"
	"time"

	"studyplanner/internal/domain"
)

type Config struct {
	Listen       string
	DatabasePath string
	Timezone     *time.Location

	AccountEmail string
	AccountName  string

	APIUsername string
	APIPassword string

	MorningTime string
	SyncCron    string

	AssistURL   string
	AssistToken string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

func Load() (*Config, error) {
	listen := os.Getenv("LISTEN")
	if listen == "" {
		listen = ":8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/studyplanner.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	email := os.Getenv("ACCOUNT_EMAIL")
	if email == "" {
		return nil, fmt.Errorf("ACCOUNT_EMAIL is required")
	}

	name := os.Getenv("ACCOUNT_NAME")
	if name == "" {
		name = email
	}

	morningTime := os.Getenv("MORNING_TIME")
	if morningTime == "" {
		morningTime = "08:00"
	} else if _, _, err := domain.ParseClock(morningTime); err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME: %w", err)
	}

	syncCron := os.Getenv("SYNC_CRON")
	if syncCron == "" {
		syncCron = "*/30 * * * *"
	}

	return &Config{
		Listen:         listen,
		DatabasePath:   dbPath,
		Timezone:       tz,
		AccountEmail:   email,
		AccountName:    name,
		APIUsername:    os.Getenv("API_USERNAME"),
		APIPassword:    os.Getenv("API_PASSWORD"),
		MorningTime:    morningTime,
		SyncCron:       syncCron,
		AssistURL:      os.Getenv("ASSIST_URL"),
		AssistToken:    os.Getenv("ASSIST_TOKEN"),
		CalDAVURL:      os.Getenv("CALDAV_URL"),
		CalDAVUsername: os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword: os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar: os.Getenv("CALDAV_CALENDAR"),
	}, nil
}

// APIAuthEnabled reports whether the HTTP API requires basic auth.
func (c *Config) APIAuthEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}
