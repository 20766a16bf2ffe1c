// Package client implements the client side of the synchronization protocol:
// the sync agent that owns the socket and the reconciler that merges
// server-pushed changes into the local shared cache.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/logging"
	"github.com/example/calendar-sync/internal/persistence"
)

// Notifier surfaces user-facing notifications. The reconciler invokes it from
// the receive goroutine and only for changes authored by other clients;
// implementations own the hand-off to whatever presentation context exists.
type Notifier interface {
	EventShared(ev event.SharedEvent)
	EventUpdated(ev event.SharedEvent)
	EventDeleted(ev event.SharedEvent)
}

// CachePersister mirrors the shared cache to disk. It is satisfied by
// persistence.CacheFile; tests substitute stubs.
type CachePersister interface {
	Save(ctx context.Context, buckets map[string][]event.SharedEvent) error
	Load(ctx context.Context) (map[string][]event.SharedEvent, error)
}

// Reconciler is the client-side mirror of shared events, keyed by start date.
// It deduplicates by identifier and suppresses notifications for changes
// whose creator equals the local identity.
type Reconciler struct {
	mu       sync.Mutex
	identity string
	buckets  map[string][]event.SharedEvent
	cache    CachePersister
	notifier Notifier
	logger   *slog.Logger
}

// NewReconciler constructs a reconciler for the given local identity. The
// cache persister and notifier may be nil.
func NewReconciler(identity string, cache CachePersister, notifier Notifier, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		identity: identity,
		buckets:  make(map[string][]event.SharedEvent),
		cache:    cache,
		notifier: notifier,
		logger:   logger,
	}
}

// Load populates the cache from disk, for offline view before a connection is
// established. A missing cache file means an empty cache.
func (r *Reconciler) Load(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	buckets, err := r.cache.Load(ctx)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return err
	}
	r.mu.Lock()
	r.buckets = buckets
	r.mu.Unlock()
	return nil
}

// ApplyNew inserts the event under its date key. An event whose identifier is
// already present under that key is ignored, so a self-originated broadcast
// echo cannot duplicate the locally inserted copy. A notification is surfaced
// only when notify is set and the creator is someone else.
func (r *Reconciler) ApplyNew(ctx context.Context, ev event.SharedEvent, notify bool) {
	key := ev.DateKey()

	r.mu.Lock()
	for _, existing := range r.buckets[key] {
		if existing.ID == ev.ID {
			r.mu.Unlock()
			r.logger.Debug("shared event already present", "id", ev.ID)
			return
		}
	}
	r.buckets[key] = append(r.buckets[key], ev)
	r.persistLocked(ctx)
	r.mu.Unlock()

	r.logger.Info("shared event added", "id", ev.ID, "title", ev.Title, "creator", ev.Creator)
	if notify && ev.Creator != r.identity && r.notifier != nil {
		r.notifier.EventShared(ev)
	}
}

// ApplyExisting inserts a replayed event without notification, regardless of
// creator, so the local identity's own events are restored after a reconnect.
func (r *Reconciler) ApplyExisting(ctx context.Context, ev event.SharedEvent) {
	r.ApplyNew(ctx, ev, false)
}

// ApplyUpdate scans all date buckets for a matching identifier and replaces
// the record in place. The date key is recomputed in case the update moved
// the event to another day.
func (r *Reconciler) ApplyUpdate(ctx context.Context, ev event.SharedEvent) {
	r.mu.Lock()
	found := false
	for key, bucket := range r.buckets {
		for i := range bucket {
			if bucket[i].ID != ev.ID {
				continue
			}
			found = true
			newKey := ev.DateKey()
			if newKey == key {
				bucket[i] = ev
			} else {
				r.buckets[key] = append(bucket[:i], bucket[i+1:]...)
				r.buckets[newKey] = append(r.buckets[newKey], ev)
			}
			break
		}
		if found {
			break
		}
	}
	if found {
		r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if !found {
		r.logger.Warn("shared event to update not found", "id", ev.ID)
		return
	}
	r.logger.Info("shared event updated", "id", ev.ID, "title", ev.Title, "creator", ev.Creator)
	if ev.Creator != r.identity && r.notifier != nil {
		r.notifier.EventUpdated(ev)
	}
}

// ApplyDelete scans all date buckets and removes the first record with the
// given identifier.
func (r *Reconciler) ApplyDelete(ctx context.Context, id string) {
	var removed event.SharedEvent
	found := false

	r.mu.Lock()
	for key, bucket := range r.buckets {
		for i := range bucket {
			if bucket[i].ID == id {
				removed = bucket[i]
				r.buckets[key] = append(bucket[:i], bucket[i+1:]...)
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	if found {
		r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if !found {
		r.logger.Warn("shared event to delete not found", "id", id)
		return
	}
	r.logger.Info("shared event deleted", "id", id, "title", removed.Title, "creator", removed.Creator)
	if removed.Creator != r.identity && r.notifier != nil {
		r.notifier.EventDeleted(removed)
	}
}

// Clear empties the entire cache ahead of a fresh replay. The cache file is
// left alone; the replay that follows repopulates and persists it.
func (r *Reconciler) Clear(ctx context.Context) {
	r.mu.Lock()
	r.buckets = make(map[string][]event.SharedEvent)
	r.mu.Unlock()
	r.logger.Info("shared cache cleared")
}

// Events returns a flattened copy of every cached event.
func (r *Reconciler) Events() []event.SharedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.SharedEvent, 0)
	for _, bucket := range r.buckets {
		out = append(out, bucket...)
	}
	return out
}

// EventsOn returns a copy of the bucket for one YYYY-MM-DD date key.
func (r *Reconciler) EventsOn(key string) []event.SharedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := r.buckets[key]
	out := make([]event.SharedEvent, len(bucket))
	copy(out, bucket)
	return out
}

func (r *Reconciler) persistLocked(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Save(ctx, r.buckets); err != nil {
		logging.FromContext(ctx, r.logger).Error("failed to persist shared cache", "error", err)
	}
}
