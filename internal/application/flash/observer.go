package flash

import (
	"context"
	"time"

	domain "flashbox/internal/domain/flash"
)

// EventType identifies a store operation.
type EventType string

// Store events
const (
	EventAppend   EventType = "flash.append"
	EventRetrieve EventType = "flash.retrieve"
	EventClear    EventType = "flash.clear"
	EventRender   EventType = "flash.render"
)

// Event describes one completed store operation.
type Event struct {
	Type        EventType
	Kind        domain.Kind // EventAppend only
	Count       int         // messages appended, returned or rendered
	Destructive bool        // EventRetrieve and EventRender
	Template    string      // EventRender only
	Duration    time.Duration
	Timestamp   time.Time
}

// Observer receives store events for logging, timing or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnEvent(ctx context.Context, event Event) {}

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
