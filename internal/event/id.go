package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces a globally unique identifier for a newly created
// shared event, combining the creator name, a millisecond timestamp and a
// random suffix.
type IDGenerator func(creator string) string

// NewIDGenerator returns the production identifier generator. The now func is
// injectable so tests can pin the timestamp component; nil falls back to
// time.Now.
func NewIDGenerator(now func() time.Time) IDGenerator {
	if now == nil {
		now = time.Now
	}
	return func(creator string) string {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		return fmt.Sprintf("%s_%d_%s", creator, now().UnixMilli(), suffix)
	}
}

// FallbackID synthesizes an identifier for a complete encoding that arrived
// without one. The legacy_ prefix marks the record as pre-identifier data.
func FallbackID(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return fmt.Sprintf("legacy_%d", now().UnixMilli())
}
