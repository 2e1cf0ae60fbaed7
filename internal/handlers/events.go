package handlers

import (
	"sync"
	"time"

	"kiln_controller/internal/oven"
)

const subscriberBuffer = 16

// EventHub fans oven events out to websocket subscribers. Slow subscribers
// miss events instead of stalling the publisher.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan oven.Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan oven.Event]struct{})}
}

// Subscribe returns a channel of events and a func that releases it.
func (h *EventHub) Subscribe() (<-chan oven.Event, func()) {
	ch := make(chan oven.Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// OvenEvent implements oven.EventSink.
func (h *EventHub) OvenEvent(e oven.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *EventHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// wsEvent is the websocket form of an oven event.
type wsEvent struct {
	Type        string    `json:"type"`
	Profile     string    `json:"profile,omitempty"`
	Temperature float64   `json:"temperature"`
	Target      float64   `json:"target"`
	Runtime     float64   `json:"runtime"`
	At          time.Time `json:"at"`
}

func toWSEvent(e oven.Event) wsEvent {
	return wsEvent{
		Type:        string(e.Kind),
		Profile:     e.Profile,
		Temperature: e.Temperature,
		Target:      e.Target,
		Runtime:     e.Runtime,
		At:          e.At.UTC(),
	}
}
