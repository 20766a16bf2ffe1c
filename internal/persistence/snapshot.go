// Package persistence owns the two flat files of the system: the server's
// shared-event snapshot and the client's per-user shared cache. Both store
// one complete event encoding per line; the snapshot is rewritten in full on
// every store mutation.
package persistence

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/wire"
)

// SnapshotFile persists the authoritative shared-event list.
type SnapshotFile struct {
	path   string
	logger *slog.Logger
}

// NewSnapshotFile wires a snapshot persister for the given path.
func NewSnapshotFile(path string, logger *slog.Logger) *SnapshotFile {
	return &SnapshotFile{path: path, logger: logger}
}

// Path returns the backing file location.
func (f *SnapshotFile) Path() string {
	return f.path
}

// Save rewrites the entire snapshot, one complete encoding per line.
func (f *SnapshotFile) Save(ctx context.Context, events []event.SharedEvent) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	var builder strings.Builder
	for _, ev := range events {
		builder.WriteString(wire.Encode(ev))
		builder.WriteString("\n")
	}

	if err := os.WriteFile(f.path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logging.FromContext(ctx, f.logger).Debug("snapshot saved", "path", f.path, "events", len(events))
	return nil
}

// Load decodes every line with the complete decoder, skipping lines that fail
// to parse. A missing file yields ErrNotFound so callers can start fresh.
func (f *SnapshotFile) Load(ctx context.Context) ([]event.SharedEvent, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.path)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	logger := logging.FromContext(ctx, f.logger)
	events := make([]event.SharedEvent, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		ev, err := wire.DecodeComplete(line, nil)
		if err != nil {
			logger.Warn("skipping unparseable snapshot line", "path", f.path, "error", err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return events, nil
}
