package event

import (
	"fmt"
	"time"
)

// Alarm labels select how far ahead of an event's start a reminder fires.
const (
	AlarmNone    = "none"
	Alarm10Min   = "10min"
	Alarm30Min   = "30min"
	AlarmOneHour = "1hr"
	AlarmOneDay  = "1day"
)

// Repeat labels select how an event recurs.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
)

// SharedEvent is the unit of synchronization: a calendar entry owned by a
// creator and visible to every connected client. ID is assigned once at
// creation and never regenerated; two records with the same ID are the same
// logical event regardless of the other fields.
type SharedEvent struct {
	Title    string
	Location string
	AllDay   bool

	// Months are 0-based, matching the wire layout.
	StartYear   int
	StartMonth  int
	StartDay    int
	StartHour   int
	StartMinute int
	EndYear     int
	EndMonth    int
	EndDay      int
	EndHour     int
	EndMinute   int

	Alarm   string
	Repeat  string
	Memo    string
	Creator string
	ID      string
}

// DateKey returns the YYYY-MM-DD bucket key for the event's start date.
func (e SharedEvent) DateKey() string {
	return DateKey(e.StartYear, e.StartMonth, e.StartDay)
}

// DateKey formats a 0-based month date as a YYYY-MM-DD cache key.
func DateKey(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month+1, day)
}

// StartTime resolves the event's start in the provided location.
// A nil location defaults to time.Local.
func (e SharedEvent) StartTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(e.StartYear, time.Month(e.StartMonth+1), e.StartDay, e.StartHour, e.StartMinute, 0, 0, loc)
}

// EndTime resolves the event's end in the provided location.
func (e SharedEvent) EndTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(e.EndYear, time.Month(e.EndMonth+1), e.EndDay, e.EndHour, e.EndMinute, 0, 0, loc)
}

// AlarmLead maps the event's alarm label to the duration subtracted from the
// start time when computing the reminder instant. Unknown labels map to zero,
// like AlarmNone.
func (e SharedEvent) AlarmLead() time.Duration {
	switch e.Alarm {
	case Alarm10Min:
		return 10 * time.Minute
	case Alarm30Min:
		return 30 * time.Minute
	case AlarmOneHour:
		return time.Hour
	case AlarmOneDay:
		return 24 * time.Hour
	default:
		return 0
	}
}
