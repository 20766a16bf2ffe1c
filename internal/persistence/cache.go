package persistence

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/wire"
)

// Date buckets in the cache file are introduced by a "SharedDay <key>:"
// header followed by one complete encoding per line.
const cacheDayPrefix = "SharedDay "

// CacheFile mirrors a client's local shared-event view on disk, grouped under
// date headers.
type CacheFile struct {
	path   string
	logger *slog.Logger
}

// NewCacheFile wires a cache persister for the given path.
func NewCacheFile(path string, logger *slog.Logger) *CacheFile {
	return &CacheFile{path: path, logger: logger}
}

// Path returns the backing file location.
func (f *CacheFile) Path() string {
	return f.path
}

// Save rewrites the cache file from the date-keyed event buckets. Buckets are
// written in sorted key order so the output is stable; empty buckets are
// omitted.
func (f *CacheFile) Save(ctx context.Context, buckets map[string][]event.SharedEvent) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		if len(buckets[key]) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, key := range keys {
		builder.WriteString(cacheDayPrefix)
		builder.WriteString(key)
		builder.WriteString(":\n")
		for _, ev := range buckets[key] {
			builder.WriteString(wire.Encode(ev))
			builder.WriteString("\n")
		}
	}

	if err := os.WriteFile(f.path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	logging.FromContext(ctx, f.logger).Debug("shared cache saved", "path", f.path, "days", len(keys))
	return nil
}

// Load rebuilds the date-keyed buckets from disk, skipping lines that fail to
// parse and lines that appear before any day header. A missing file yields
// ErrNotFound.
func (f *CacheFile) Load(ctx context.Context) (map[string][]event.SharedEvent, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.path)
		}
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer file.Close()

	logger := logging.FromContext(ctx, f.logger)
	buckets := make(map[string][]event.SharedEvent)
	currentKey := ""

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, cacheDayPrefix) && strings.HasSuffix(line, ":") {
			currentKey = strings.TrimSuffix(strings.TrimPrefix(line, cacheDayPrefix), ":")
			if _, ok := buckets[currentKey]; !ok {
				buckets[currentKey] = make([]event.SharedEvent, 0)
			}
			continue
		}
		if currentKey == "" || strings.TrimSpace(line) == "" {
			continue
		}
		ev, err := wire.DecodeComplete(line, nil)
		if err != nil {
			logger.Warn("skipping unparseable cache line", "path", f.path, "error", err)
			continue
		}
		buckets[currentKey] = append(buckets[currentKey], ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	return buckets, nil
}
