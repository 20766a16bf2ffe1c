// Package reminder sweeps the shared cache once a minute and surfaces an
// alert when an event's alarm lead time is reached, expanding repeating
// events into their upcoming occurrences.
package reminder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"github.com/example/calendar-sync/internal/event"
)

// checkTolerance matches an occurrence whose notify instant is within one
// minute of the sweep, mirroring the historical minute-granularity check.
const checkTolerance = time.Minute

// retainFired bounds how long a fired key is remembered before pruning.
const retainFired = 48 * time.Hour

// EventSource yields the events to sweep. The client reconciler satisfies it.
type EventSource interface {
	Events() []event.SharedEvent
}

// NotifyFunc receives the event and the concrete occurrence start the alert
// refers to.
type NotifyFunc func(ev event.SharedEvent, occurrence time.Time)

// Service drives the periodic reminder sweep.
type Service struct {
	source EventSource
	notify NotifyFunc
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
	cron   *cron.Cron

	mu    sync.Mutex
	fired map[string]time.Time
}

// NewService wires a reminder service. The now func and location are
// injectable; nil selects time.Now and time.Local.
func NewService(source EventSource, notify NotifyFunc, now func() time.Time, loc *time.Location, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		notify: notify,
		now:    now,
		loc:    loc,
		logger: logger,
		fired:  make(map[string]time.Time),
	}
}

// Start schedules the sweep once per minute until Stop is called.
func (s *Service) Start() {
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("* * * * *", func() { s.Check() }); err != nil {
		s.logger.Error("failed to schedule reminder sweep", "error", err)
		s.cron = nil
		return
	}
	s.cron.Start()
}

// Stop halts the periodic sweep.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
}

// Check performs one sweep: for every cached event and every occurrence near
// the sweep instant, fire the notification once.
func (s *Service) Check() {
	if s.source == nil || s.notify == nil {
		return
	}
	now := s.now().In(s.loc)

	for _, ev := range s.source.Events() {
		// AlarmNone still alerts, at the start time itself.
		lead := ev.AlarmLead()
		for _, occurrence := range s.occurrencesNear(ev, now, lead) {
			notifyAt := occurrence.Add(-lead)
			diff := now.Sub(notifyAt)
			if diff < -checkTolerance || diff > checkTolerance {
				continue
			}
			key := ev.ID + "_" + occurrence.Format(time.RFC3339) + "_" + ev.Alarm
			if !s.markFired(key, now) {
				continue
			}
			s.logger.Info("reminder due", "id", ev.ID, "title", ev.Title, "occurrence", occurrence, "alarm", ev.Alarm)
			s.notify(ev, occurrence)
		}
	}
}

// occurrencesNear returns the occurrence starts whose notify instant can fall
// within the tolerance window around now. Non-repeating events contribute
// their single start; repeating events are expanded with an rrule.
func (s *Service) occurrencesNear(ev event.SharedEvent, now time.Time, lead time.Duration) []time.Time {
	start := ev.StartTime(s.loc)

	freq, repeating := repeatFrequency(ev.Repeat)
	if !repeating {
		return []time.Time{start}
	}

	rule, err := rrule.NewRRule(rrule.ROption{Freq: freq, Dtstart: start})
	if err != nil {
		s.logger.Warn("failed to expand repeat rule", "id", ev.ID, "repeat", ev.Repeat, "error", err)
		return []time.Time{start}
	}

	windowStart := now.Add(lead - checkTolerance)
	windowEnd := now.Add(lead + checkTolerance)
	return rule.Between(windowStart, windowEnd, true)
}

func repeatFrequency(label string) (rrule.Frequency, bool) {
	switch label {
	case event.RepeatDaily:
		return rrule.DAILY, true
	case event.RepeatWeekly:
		return rrule.WEEKLY, true
	case event.RepeatMonthly:
		return rrule.MONTHLY, true
	case event.RepeatYearly:
		return rrule.YEARLY, true
	default:
		return 0, false
	}
}

// markFired records the key and reports whether it was new. Old entries are
// pruned so the set does not grow without bound.
func (s *Service) markFired(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, at := range s.fired {
		if now.Sub(at) > retainFired {
			delete(s.fired, k)
		}
	}
	if _, ok := s.fired[key]; ok {
		return false
	}
	s.fired[key] = now
	return true
}
