// internal/orchestrator/events.go
package orchestrator

import (
	"sync/atomic"
	"time"
)

// EventType tags a dispatch lifecycle event.
type EventType string

const (
	EventDispatched EventType = "dispatched"
	EventCompleted  EventType = "completed"
	EventTimeout    EventType = "timeout"
	EventFailed     EventType = "failed"
)

// Event is a dispatch lifecycle notification pushed to observers.
type Event struct {
	Type    EventType `json:"type"`
	Command string    `json:"command"`
	Detail  string    `json:"detail,omitempty"`
	Cached  bool      `json:"cached,omitempty"`
	At      time.Time `json:"at"`
}

// eventEmitter fans dispatch events to a single buffered channel. Emission
// never blocks dispatch; events are dropped when no observer keeps up.
type eventEmitter struct {
	ch           chan Event
	droppedCount atomic.Uint64
}

func newEventEmitter(bufSize int) *eventEmitter {
	return &eventEmitter{
		ch: make(chan Event, bufSize),
	}
}

func (e *eventEmitter) emit(ev Event) {
	ev.At = time.Now()
	select {
	case e.ch <- ev:
	default:
		e.droppedCount.Add(1)
	}
}

func (e *eventEmitter) dropped() uint64 {
	return e.droppedCount.Load()
}
