package caldav

import "time"

// Calendar represents one calendar collection on the subscription server.
type Calendar struct {
	Path        string
	DisplayName string
}

// Event is an event read from the subscribed calendar.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	AllDay      bool
}
