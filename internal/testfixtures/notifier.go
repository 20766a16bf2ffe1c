package testfixtures

import (
	"sync"

	"github.com/example/calendar-sync/internal/event"
)

// RecordingNotifier captures surfaced notifications so tests can assert on
// suppression and ordering. It satisfies the client package's Notifier.
type RecordingNotifier struct {
	mu      sync.Mutex
	Shared  []event.SharedEvent
	Updated []event.SharedEvent
	Deleted []event.SharedEvent
}

func (n *RecordingNotifier) EventShared(ev event.SharedEvent) {
	n.mu.Lock()
	n.Shared = append(n.Shared, ev)
	n.mu.Unlock()
}

func (n *RecordingNotifier) EventUpdated(ev event.SharedEvent) {
	n.mu.Lock()
	n.Updated = append(n.Updated, ev)
	n.mu.Unlock()
}

func (n *RecordingNotifier) EventDeleted(ev event.SharedEvent) {
	n.mu.Lock()
	n.Deleted = append(n.Deleted, ev)
	n.mu.Unlock()
}

// Counts returns how many notifications of each kind were captured.
func (n *RecordingNotifier) Counts() (shared, updated, deleted int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Shared), len(n.Updated), len(n.Deleted)
}
