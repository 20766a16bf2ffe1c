package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/persistence"
	"github.com/example/calendar-sync/internal/wire"
)

// Persister rewrites the durable snapshot of the store. It is satisfied by
// persistence.SnapshotFile; tests substitute stubs.
type Persister interface {
	Save(ctx context.Context, events []event.SharedEvent) error
	Load(ctx context.Context) ([]event.SharedEvent, error)
}

// Store is the authoritative, process-wide collection of shared events. Every
// mutation triggers a synchronous full rewrite of the backing snapshot; a
// persistence failure is logged and the in-memory state remains operative.
type Store struct {
	mu       sync.Mutex
	events   []event.SharedEvent
	snapshot Persister
	logger   *slog.Logger
}

// NewStore wires the store to its snapshot persister.
func NewStore(snapshot Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{snapshot: snapshot, logger: logger}
}

// Load replaces the in-memory list with the persisted snapshot. A missing
// snapshot file means a fresh start, not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}
	events, err := s.snapshot.Load(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			s.logger.Info("no shared event snapshot, starting fresh")
			return nil
		}
		return err
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	s.logger.Info("shared events loaded", "count", len(events))
	return nil
}

// Add appends the event, persists the store and returns the broadcast-ready
// complete encoding.
func (s *Store) Add(ctx context.Context, ev event.SharedEvent) string {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.logger.Info("shared event added", "id", ev.ID, "title", ev.Title, "creator", ev.Creator)
	return wire.Encode(ev)
}

// Update replaces the record with the same identifier in place and reports
// whether it was found. A miss is logged and takes no other action.
func (s *Store) Update(ctx context.Context, ev event.SharedEvent) bool {
	s.mu.Lock()
	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events[i] = ev
			s.persistLocked(ctx)
			s.mu.Unlock()
			s.logger.Info("shared event updated", "id", ev.ID, "title", ev.Title, "creator", ev.Creator)
			return true
		}
	}
	s.mu.Unlock()

	s.logger.Warn("shared event to update not found", "id", ev.ID)
	return false
}

// Delete removes the record only when the requester is its creator, persists
// on success and reports whether a record was removed. A mismatch or a miss
// is a logged no-op.
func (s *Store) Delete(ctx context.Context, id, requester string) bool {
	s.mu.Lock()
	for i := range s.events {
		if s.events[i].ID != id {
			continue
		}
		if s.events[i].Creator != requester {
			creator := s.events[i].Creator
			s.mu.Unlock()
			s.logger.Warn("delete rejected, requester is not the creator", "id", id, "requester", requester, "creator", creator)
			return false
		}
		removed := s.events[i]
		s.events = append(s.events[:i], s.events[i+1:]...)
		s.persistLocked(ctx)
		s.mu.Unlock()
		s.logger.Info("shared event deleted", "id", id, "title", removed.Title, "creator", removed.Creator)
		return true
	}
	s.mu.Unlock()

	s.logger.Warn("shared event to delete not found", "id", id, "requester", requester)
	return false
}

// Snapshot returns a defensive copy of the full list, used to replay state to
// newly connected clients.
func (s *Store) Snapshot() []event.SharedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.SharedEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Save forces a snapshot rewrite of the current state, used on shutdown.
func (s *Store) Save(ctx context.Context) {
	s.mu.Lock()
	s.persistLocked(ctx)
	s.mu.Unlock()
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.snapshot == nil {
		return
	}
	if err := s.snapshot.Save(ctx, s.events); err != nil {
		logging.FromContext(ctx, s.logger).Error("failed to persist shared events", "error", err)
	}
}
