package hass

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/mqtt"
)

// Adapter defaults.
const (
	// DefaultWindow is how long after each connection incoming config
	// messages count as discovery data.
	DefaultWindow = 500 * time.Millisecond

	// defaultBacklogWarning is the queue length at which the adapter warns
	// that Run is falling behind.
	defaultBacklogWarning = 1024
)

// Transport is the publish/subscribe connection the adapter drives.
// *mqtt.Client satisfies it.
type Transport interface {
	Connect() error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
	Close() error
}

// Logger defines the logging interface used by the bridge package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AdapterOptions holds configuration for creating an adapter.
type AdapterOptions struct {
	// Transport is the MQTT connection. Required.
	Transport Transport

	// RootTopic is the discovery prefix, e.g. "homeassistant". Required.
	RootTopic string

	// Window is the discovery window length. Defaults to DefaultWindow.
	Window time.Duration

	// QoS for the discovery subscriptions.
	QoS byte

	// Logger is an optional structured logger.
	Logger Logger

	// BacklogWarning is the number of queued events at which, and at every
	// multiple of which, a warning is logged. The queue itself is unbounded.
	// Defaults to 1024.
	BacklogWarning int
}

// Adapter owns the transport connection and turns its callbacks into a
// single ordered stream of events for an EventSink.
//
// On every connection it opens a discovery window, subscribes to
// <root>/+/+/config and <root>/+/+/+/config and arms a one-shot timer.
// While the window is open config messages are discovery messages and
// everything else is dropped; once it closes every message is a runtime
// message.
//
// Transport callbacks only enqueue, and never block. All window state
// lives in the goroutine running Run, so the sink sees events strictly one
// at a time.
type Adapter struct {
	transport Transport
	root      string
	window    time.Duration
	qos       byte
	logger    Logger
	topics    mqtt.Topics

	queue   *eventQueue
	backlog int

	// afterFunc arms the window timer; replaced in tests.
	afterFunc func(d time.Duration, f func()) *time.Timer

	// Owned by the Run goroutine.
	generation uint64
	windowOpen bool

	running   bool
	runningMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewAdapter creates an adapter and registers its transport callbacks.
// Call Run, then Connect.
func NewAdapter(opts AdapterOptions) (*Adapter, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if opts.RootTopic == "" {
		return nil, fmt.Errorf("root topic is required")
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.BacklogWarning <= 0 {
		opts.BacklogWarning = defaultBacklogWarning
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	a := &Adapter{
		transport: opts.Transport,
		root:      opts.RootTopic,
		window:    opts.Window,
		qos:       opts.QoS,
		logger:    opts.Logger,
		queue:     newEventQueue(),
		backlog:   opts.BacklogWarning,
		afterFunc: time.AfterFunc,
		done:      make(chan struct{}),
	}

	a.transport.SetOnConnect(func() {
		a.enqueue(event{kind: eventConnected})
	})
	a.transport.SetOnDisconnect(func(err error) {
		a.enqueue(event{kind: eventDisconnected, err: err})
	})

	return a, nil
}

// RootTopic returns the discovery prefix.
func (a *Adapter) RootTopic() string { return a.root }

// Window returns the discovery window length.
func (a *Adapter) Window() time.Duration { return a.window }

// Connect establishes the transport connection. Failures wrap
// mqtt.ErrConnectionFailed; retries after the first success belong to
// the transport.
func (a *Adapter) Connect() error {
	select {
	case <-a.done:
		return ErrAdapterClosed
	default:
	}

	if err := a.transport.Connect(); err != nil {
		if errors.Is(err, mqtt.ErrConnectionFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", mqtt.ErrConnectionFailed, err)
	}
	return nil
}

// Publish sends a message. Failures wrap mqtt.ErrPublishFailed.
// Publish is safe to call from any goroutine, including an EventSink.
func (a *Adapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	select {
	case <-a.done:
		return fmt.Errorf("%w: %w", mqtt.ErrPublishFailed, ErrAdapterClosed)
	default:
	}

	if err := a.transport.Publish(topic, payload, qos, retained); err != nil {
		if errors.Is(err, mqtt.ErrPublishFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", mqtt.ErrPublishFailed, err)
	}
	return nil
}

// Disconnect stops Run and closes the transport. It is idempotent; later
// calls return the first call's result.
func (a *Adapter) Disconnect() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.closeErr = a.transport.Close()
	})
	return a.closeErr
}

// Run delivers events to sink until ctx is cancelled or Disconnect is
// called. It returns ctx.Err() on cancellation and nil after Disconnect.
func (a *Adapter) Run(ctx context.Context, sink EventSink) error {
	a.runningMu.Lock()
	if a.running {
		a.runningMu.Unlock()
		return ErrAdapterRunning
	}
	a.running = true
	a.runningMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.done:
			return nil
		case <-a.queue.notify:
			for _, ev := range a.queue.drain() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-a.done:
					return nil
				default:
				}
				a.dispatch(ctx, sink, ev)
			}
		}
	}
}

func (a *Adapter) dispatch(ctx context.Context, sink EventSink, ev event) {
	switch ev.kind {
	case eventConnected:
		a.handleConnected(ctx, sink)

	case eventMessage:
		a.handleMessage(ctx, sink, ev.topic, ev.payload)

	case eventWindowExpired:
		if ev.generation != a.generation || !a.windowOpen {
			a.logger.Debug("ignoring stale discovery window timer", "generation", ev.generation)
			return
		}
		a.windowOpen = false
		a.logger.Info("discovery window closed", "generation", ev.generation)
		sink.HandleWindowClosed(ctx)

	case eventDisconnected:
		a.logger.Warn("transport disconnected", "error", ev.err)
		sink.HandleDisconnected(ctx, ev.err)

	default:
		a.logger.Warn("unknown adapter event", "kind", ev.kind.String())
	}
}

func (a *Adapter) handleConnected(ctx context.Context, sink EventSink) {
	a.generation++
	a.windowOpen = true
	gen := a.generation

	// One-shot per connection. A timer from an earlier connection is
	// recognised by its generation and ignored.
	a.afterFunc(a.window, func() {
		a.enqueue(event{kind: eventWindowExpired, generation: gen})
	})

	a.logger.Info("discovery window opened",
		"root", a.root,
		"window", a.window,
		"generation", gen,
	)
	sink.HandleConnected(ctx)

	for _, filter := range a.topics.DiscoveryFilters(a.root) {
		if err := a.transport.Subscribe(filter, a.qos, a.onMessage); err != nil {
			a.logger.Error("discovery subscription failed", "filter", filter, "error", err)
			sink.HandleTransportError(ctx, fmt.Errorf("subscribing to %s: %w", filter, err))
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, sink EventSink, topic string, payload []byte) {
	if !a.windowOpen {
		sink.HandleRuntimeMessage(ctx, topic, payload)
		return
	}
	if a.topics.IsDiscoveryTopic(a.root, topic) {
		sink.HandleDiscoveryMessage(ctx, topic, payload)
		return
	}
	a.logger.Debug("dropping non-discovery message during window", "topic", topic)
}

// onMessage is the transport's message handler.
func (a *Adapter) onMessage(topic string, payload []byte) error {
	if !a.enqueue(event{kind: eventMessage, topic: topic, payload: payload}) {
		return ErrAdapterClosed
	}
	return nil
}

// enqueue hands an event to Run without blocking, so no retained config
// message is lost. It refuses events once the adapter is closed.
func (a *Adapter) enqueue(ev event) bool {
	select {
	case <-a.done:
		return false
	default:
	}

	if n := a.queue.push(ev); n%a.backlog == 0 {
		a.logger.Warn("adapter event backlog growing", "queued", n)
	}
	return true
}
