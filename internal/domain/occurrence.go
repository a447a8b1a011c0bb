package domain

import (
	"fmt"
	"time"
)

// Occurrence is one concrete date-bound materialization of a recurring
// master task. Occurrences are derived on demand and never persisted; the
// ID is reproducible from (master id, occurrence date) so toggles and
// calendar re-renders are idempotent.
type Occurrence struct {
	ID       string
	TaskID   int64
	Title    string
	Category string
	Priority Priority
	Due      time.Time
	Done     bool
}

// OccurrenceID derives the stable identifier for the occurrence of the
// given master on the given date.
func OccurrenceID(taskID int64, due time.Time) string {
	return fmt.Sprintf("%d@%s", taskID, DateKey(due))
}
