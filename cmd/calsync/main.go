package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/example/calendar-sync/internal/client"
	"github.com/example/calendar-sync/internal/config"
	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/ics"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/persistence"
	"github.com/example/calendar-sync/internal/reminder"
)

// consoleNotifier is the terminal stand-in for the calendar UI: pushed
// changes and reminders surface as printed lines.
type consoleNotifier struct{}

func (consoleNotifier) EventShared(ev event.SharedEvent) {
	fmt.Printf("** %s shared a new event: %s (%s)\n", ev.Creator, ev.Title, ev.DateKey())
}

func (consoleNotifier) EventUpdated(ev event.SharedEvent) {
	fmt.Printf("** %s updated a shared event: %s (%s)\n", ev.Creator, ev.Title, ev.DateKey())
}

func (consoleNotifier) EventDeleted(ev event.SharedEvent) {
	fmt.Printf("** %s deleted a shared event: %s\n", ev.Creator, ev.Title)
}

func main() {
	cfg, err := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	name := cfg.Client.DisplayName
	if len(os.Args) > 1 {
		name = strings.TrimSpace(os.Args[1])
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "usage: calsync <display name> (or set CALSYNC_DISPLAY_NAME)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, logger)

	cache := persistence.NewCacheFile(cfg.Client.CachePath(name), logger)
	rec := client.NewReconciler(name, cache, consoleNotifier{}, logger)
	if err := rec.Load(ctx); err != nil {
		logger.Error("failed to load shared cache", "error", err)
		os.Exit(1)
	}

	agent := client.NewAgent(cfg.Client.ServerAddr(), rec, time.Now, logger)
	if err := agent.Connect(ctx, name); err != nil {
		logger.Warn("running offline, live sync disabled", "error", err)
	}
	defer agent.Close()

	reminders := reminder.NewService(rec, func(ev event.SharedEvent, occurrence time.Time) {
		fmt.Printf("!! reminder: %s at %s (%s ahead)\n", ev.Title, occurrence.Format("2006-01-02 15:04"), ev.Alarm)
	}, time.Now, time.Local, logger)
	reminders.Start()
	defer reminders.Stop()

	go func() {
		<-ctx.Done()
		agent.Close()
		os.Exit(0)
	}()

	runPrompt(ctx, name, agent, rec, logger)
}

func runPrompt(ctx context.Context, name string, agent *client.Agent, rec *client.Reconciler, logger *slog.Logger) {
	idGen := event.NewIDGenerator(time.Now)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("commands: share <date> <start> <end> <title>, update <id> <title>, delete <id>, list [date], export <file>, quit")
	for fmt.Print("> "); scanner.Scan(); fmt.Print("> ") {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "share":
			if len(fields) < 5 {
				fmt.Println("usage: share <yyyy-mm-dd> <hh:mm> <hh:mm> <title>")
				continue
			}
			ev, err := buildEvent(fields[1], fields[2], fields[3], strings.Join(fields[4:], " "), name, idGen)
			if err != nil {
				fmt.Println("cannot share:", err)
				continue
			}
			// The local copy is inserted immediately; the echoed broadcast
			// deduplicates by id.
			rec.ApplyNew(ctx, ev, false)
			if err := agent.Share(ev); err != nil {
				fmt.Println("cannot share:", err)
			}

		case "update":
			if len(fields) < 3 {
				fmt.Println("usage: update <id> <title>")
				continue
			}
			ev, ok := findEvent(rec, fields[1])
			if !ok {
				fmt.Println("no such event:", fields[1])
				continue
			}
			ev.Title = strings.Join(fields[2:], " ")
			if err := agent.Update(ev); err != nil {
				fmt.Println("cannot update:", err)
			}

		case "delete":
			if len(fields) != 2 {
				fmt.Println("usage: delete <id>")
				continue
			}
			if err := agent.Delete(fields[1]); err != nil {
				fmt.Println("cannot delete:", err)
			}

		case "list":
			events := rec.Events()
			if len(fields) == 2 {
				events = rec.EventsOn(fields[1])
			}
			for _, ev := range events {
				fmt.Printf("%s  %s %02d:%02d  %-20s by %s  [%s]\n",
					ev.DateKey(), "start", ev.StartHour, ev.StartMinute, ev.Title, ev.Creator, ev.ID)
			}

		case "export":
			if len(fields) != 2 {
				fmt.Println("usage: export <file>")
				continue
			}
			if err := exportICS(fields[1], rec.Events()); err != nil {
				fmt.Println("cannot export:", err)
			} else {
				fmt.Println("exported to", fields[1])
			}

		case "quit", "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("input ended", "error", err)
	}
}

func buildEvent(date, start, end, title, creator string, idGen event.IDGenerator) (event.SharedEvent, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return event.SharedEvent{}, fmt.Errorf("bad date %q: %w", date, err)
	}
	from, err := time.Parse("15:04", start)
	if err != nil {
		return event.SharedEvent{}, fmt.Errorf("bad start %q: %w", start, err)
	}
	to, err := time.Parse("15:04", end)
	if err != nil {
		return event.SharedEvent{}, fmt.Errorf("bad end %q: %w", end, err)
	}

	return event.SharedEvent{
		Title:       title,
		StartYear:   day.Year(),
		StartMonth:  int(day.Month()) - 1,
		StartDay:    day.Day(),
		StartHour:   from.Hour(),
		StartMinute: from.Minute(),
		EndYear:     day.Year(),
		EndMonth:    int(day.Month()) - 1,
		EndDay:      day.Day(),
		EndHour:     to.Hour(),
		EndMinute:   to.Minute(),
		Alarm:       event.AlarmNone,
		Repeat:      event.RepeatNone,
		Creator:     creator,
		ID:          idGen(creator),
	}, nil
}

func findEvent(rec *client.Reconciler, id string) (event.SharedEvent, bool) {
	for _, ev := range rec.Events() {
		if ev.ID == id {
			return ev, true
		}
	}
	return event.SharedEvent{}, false
}

func exportICS(path string, events []event.SharedEvent) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ics.Export(file, events, time.Local, time.Now)
}
