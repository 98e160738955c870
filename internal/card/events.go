package card

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names what changed on a card.
type EventKind string

const (
	EventReloaded         EventKind = "reloaded"
	EventShifted          EventKind = "shifted"
	EventValueChanged     EventKind = "value_changed"
	EventWindowRandomized EventKind = "window_randomized"
)

// Event describes a change to a card. Day is the day whose value changed,
// or the new last day for window moves.
type Event struct {
	Kind    EventKind `json:"kind"`
	HabitID uuid.UUID `json:"habitId"`
	LastDay time.Time `json:"lastDay"`
	Day     time.Time `json:"day"`
	Value   int       `json:"value"`
}

// Listener receives card events synchronously, after the change is applied.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it. Listeners
// are called in registration order.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	m.nextListener++
	id := m.nextListener
	m.listeners = append(m.listeners, listenerEntry{id: id, fn: l})
	return func() {
		for i, e := range m.listeners {
			if e.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) emit(e Event) {
	if len(m.listeners) == 0 {
		return
	}
	e.HabitID = m.habit.ID
	e.LastDay = m.lastDay
	for _, l := range append([]listenerEntry(nil), m.listeners...) {
		l.fn(e)
	}
}
