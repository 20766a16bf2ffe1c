// Package ics renders shared events as an iCalendar document so they can be
// taken into other calendar tooling.
package ics

import (
	"fmt"
	"io"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/calendar-sync/internal/event"
)

const productID = "-//calendar-sync//EN"

// Export writes a VCALENDAR containing one VEVENT per shared event. Events
// are ordered by start time so repeated exports are comparable.
func Export(w io.Writer, events []event.SharedEvent, loc *time.Location, now func() time.Time) error {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	ordered := make([]event.SharedEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime(loc).Before(ordered[j].StartTime(loc))
	})

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetVersion("2.0")

	stamp := now()
	for _, ev := range ordered {
		entry := cal.AddEvent(ev.ID)
		entry.SetDtStampTime(stamp)
		entry.SetSummary(ev.Title)
		if ev.Location != "" {
			entry.SetLocation(ev.Location)
		}
		if ev.Memo != "" {
			entry.SetDescription(ev.Memo)
		}
		if ev.Creator != "" {
			entry.SetOrganizer(ev.Creator)
		}

		if ev.AllDay {
			entry.SetAllDayStartAt(ev.StartTime(loc))
			entry.SetAllDayEndAt(ev.EndTime(loc))
		} else {
			entry.SetStartAt(ev.StartTime(loc))
			entry.SetEndAt(ev.EndTime(loc))
		}

		if freq, ok := repeatRule(ev.Repeat); ok {
			entry.AddRrule(freq)
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

func repeatRule(label string) (string, bool) {
	switch label {
	case event.RepeatDaily:
		return "FREQ=DAILY", true
	case event.RepeatWeekly:
		return "FREQ=WEEKLY", true
	case event.RepeatMonthly:
		return "FREQ=MONTHLY", true
	case event.RepeatYearly:
		return "FREQ=YEARLY", true
	default:
		return "", false
	}
}
