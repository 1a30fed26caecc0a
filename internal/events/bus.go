// Package events carries notification intents from the core to the external
// delivery layer. Intents are structured payloads; formatting, channels and
// retries happen entirely outside the core.
package events

// IntentKind discriminates notification intents.
type IntentKind string

const (
	// IntentCompleted means the entity crossed its role cap and was force-stopped.
	IntentCompleted IntentKind = "completed"
	// IntentIntermediate means an unlimited-role entity crossed the 1h threshold
	// without being stopped.
	IntentIntermediate IntentKind = "intermediate"
	// IntentAutoCancelled means a capped-role entity hit the pause cap and had
	// fractional hours truncated.
	IntentAutoCancelled IntentKind = "autoCancelled"
)

// Intent is the minimum data needed to render a human-readable notification.
type Intent struct {
	Kind        IntentKind `json:"kind"`
	EntityID    string     `json:"entityId"`
	DisplayName string     `json:"displayName"`
	Hours       int        `json:"hours"`
	// TotalSeconds is the accumulated time at the moment the intent fired.
	TotalSeconds float64 `json:"totalSeconds"`
	// SecondsLost is set on autoCancelled intents: the fractional-hour
	// remainder discarded by truncation.
	SecondsLost float64 `json:"secondsLost,omitempty"`
	// PauseCount is set on autoCancelled intents.
	PauseCount int `json:"pauseCount,omitempty"`
}

// Bus is a lightweight in-process pub-sub backed by a buffered channel.
type Bus struct {
	ch chan Intent
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan Intent, buffer)}
}

// Publish attempts to enqueue the intent without blocking.
// Returns true if published, false if the buffer is full.
func (b *Bus) Publish(it Intent) bool {
	select {
	case b.ch <- it:
		return true
	default:
		return false
	}
}

// Subscribe returns a read-only channel for the delivery layer.
func (b *Bus) Subscribe() <-chan Intent {
	return b.ch
}
