package testfixtures

import "github.com/example/calendar-sync/internal/event"

// NewEvent returns a fully populated shared event on the reference date,
// suitable as a starting point for test mutations.
func NewEvent(id, creator, title string) event.SharedEvent {
	return event.SharedEvent{
		Title:       title,
		Location:    "Room A",
		AllDay:      false,
		StartYear:   2025,
		StartMonth:  5, // June, 0-based
		StartDay:    2,
		StartHour:   9,
		StartMinute: 0,
		EndYear:     2025,
		EndMonth:    5,
		EndDay:      2,
		EndHour:     9,
		EndMinute:   15,
		Alarm:       event.Alarm10Min,
		Repeat:      event.RepeatNone,
		Memo:        "bring notes",
		Creator:     creator,
		ID:          id,
	}
}
