package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Guanran928/upower-notify/pkg/battery"
)

// Event names streamed on the /events SSE endpoint.
const (
	BatteryStatus     = "battery.status"
	BatteryTransition = "battery.transition"
)

// Event is a named JSON payload fanned out to API subscribers.
type Event struct {
	Name string
	Data json.RawMessage
}

// StatusEvent is the payload for battery.status.
type StatusEvent struct {
	Percentage int    `json:"percentage"`
	State      string `json:"state"`
	Ts         int64  `json:"ts"`
}

// TransitionEvent is the payload for battery.transition.
type TransitionEvent struct {
	Kind       string `json:"kind"`
	Percentage int    `json:"percentage"`
	State      string `json:"state"`
	Ts         int64  `json:"ts"`
}

// NewStatusEvent builds the payload for a status snapshot.
func NewStatusEvent(st battery.Status) StatusEvent {
	return StatusEvent{
		Percentage: st.Percentage,
		State:      st.State.String(),
		Ts:         st.Timestamp.Unix(),
	}
}

// NewTransitionEvent builds the payload for a detected transition.
func NewTransitionEvent(tr battery.Transition) TransitionEvent {
	return TransitionEvent{
		Kind:       string(tr.Kind),
		Percentage: tr.Status.Percentage,
		State:      tr.Status.State.String(),
		Ts:         time.Now().Unix(),
	}
}

// Hub fans events out to any number of subscribers. Slow subscribers drop
// events instead of blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub { return &Hub{subs: make(map[chan Event]struct{})} }

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := Event{Name: name, Data: b}
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	h.mu.RUnlock()
}
