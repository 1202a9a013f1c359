package hass

import (
	"context"
	"sync"
)

// EventSink consumes the adapter's events.
//
// The adapter calls exactly one method at a time, in arrival order, from
// the goroutine running Adapter.Run. Implementations therefore need no
// locking for state only they touch, and must not block for long.
type EventSink interface {
	// HandleConnected is called on every (re)connection, before the
	// discovery subscriptions are made and while the window is open.
	HandleConnected(ctx context.Context)

	// HandleDiscoveryMessage is called for config messages received while
	// the discovery window is open.
	HandleDiscoveryMessage(ctx context.Context, topic string, payload []byte)

	// HandleRuntimeMessage is called for every message received after the
	// window closed.
	HandleRuntimeMessage(ctx context.Context, topic string, payload []byte)

	// HandleWindowClosed is called once per connection when the discovery
	// window expires. No discovery message follows it until the next
	// HandleConnected.
	HandleWindowClosed(ctx context.Context)

	// HandleDisconnected is called when the connection is lost.
	HandleDisconnected(ctx context.Context, err error)

	// HandleTransportError is called for subscribe failures and other
	// transport errors that do not end the connection.
	HandleTransportError(ctx context.Context, err error)
}

type eventKind int

const (
	eventConnected eventKind = iota
	eventMessage
	eventWindowExpired
	eventDisconnected
)

func (k eventKind) String() string {
	switch k {
	case eventConnected:
		return "connected"
	case eventMessage:
		return "message"
	case eventWindowExpired:
		return "window_expired"
	case eventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// event is what transport callbacks and the window timer enqueue for Run.
type event struct {
	kind    eventKind
	topic   string
	payload []byte
	err     error

	// generation identifies the connection a window timer was armed for.
	generation uint64
}

// eventQueue is an unbounded FIFO between transport callbacks and Run.
//
// push never blocks. Run subscribes and publishes, and waits for the
// broker's acks, on the goroutine that drains the queue; the transport
// reads those acks on the goroutine that delivers messages, so a delivery
// that blocked on a full queue would stall both.
type eventQueue struct {
	mu     sync.Mutex
	items  []event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

// push appends ev and returns the backlog length.
func (q *eventQueue) push(ev event) int {
	q.mu.Lock()
	q.items = append(q.items, ev)
	n := len(q.items)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return n
}

// drain removes and returns every queued event in arrival order.
func (q *eventQueue) drain() []event {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}
