// Package events provides the in-process change feed for vault and
// identity events. The vault is a single-process system with no broker;
// subscribers are plain in-memory callbacks, delivered synchronously in
// publish order.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Type identifies the kind of change an Event describes.
type Type string

const (
	RecordingCreated  Type = "recording.created"
	RecordingDeleted  Type = "recording.deleted"
	TranscriptUpdated Type = "transcript.updated"
	IdentityChanged   Type = "identity.changed"
)

// Event describes one vault or identity change.
type Event struct {
	Type        Type   `json:"eventType"`
	Partition   string `json:"identityId,omitempty"`
	RecordingID string `json:"recordingId,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Bus fans events out to subscribers. Handlers run synchronously on the
// publishing goroutine and must be fast.
type Bus struct {
	mu   sync.RWMutex
	subs []func(Event)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive every subsequently published event.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers ev to all subscribers. A nil bus drops events, so
// components can publish unconditionally.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	log.Debug().
		Str("eventType", string(ev.Type)).
		Str("identityId", ev.Partition).
		Str("recordingId", ev.RecordingID).
		Msg("Publishing event")

	for _, fn := range subs {
		fn(ev)
	}
}
