package domain

import "time"

type User struct {
	ID        int64
	Email     string
	Name      string
	Timezone  string // IANA zone name, e.g. "Europe/Berlin"
	CreatedAt time.Time
}

// Location resolves the user's timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}
