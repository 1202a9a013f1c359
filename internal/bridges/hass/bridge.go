package hass

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/discovery"
)

// Bridge is the EventSink that ties the adapter, the discovery collector
// and the orchestrator together.
//
// Each connection starts a fresh discovery session. When the window closes
// the session is frozen and registered exactly once; messages arriving
// afterwards never touch it.
//
// Event methods run on the adapter's Run goroutine. Status may be called
// from any goroutine.
type Bridge struct {
	collector    *discovery.Collector
	orchestrator *Orchestrator
	root         string
	logger       Logger

	mu     sync.RWMutex
	status Status
}

// Status is a point-in-time view of the bridge for the status API.
type Status struct {
	Connected       bool       `json:"connected"`
	WindowOpen      bool       `json:"window_open"`
	SessionID       string     `json:"session_id,omitempty"`
	Connections     int        `json:"connections"`
	RuntimeMessages int        `json:"runtime_messages"`
	LastError       string     `json:"last_error,omitempty"`
	LastReport      *Report    `json:"last_report,omitempty"`
	LastClosedAt    *time.Time `json:"last_closed_at,omitempty"`
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Orchestrator registers closed sessions. Required.
	Orchestrator *Orchestrator

	// RootTopic is the discovery prefix. Required.
	RootTopic string

	// Collector is optional; a new one is created when nil.
	Collector *discovery.Collector

	// Logger is an optional structured logger.
	Logger Logger
}

// NewBridge creates a bridge.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if opts.RootTopic == "" {
		return nil, fmt.Errorf("root topic is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Collector == nil {
		opts.Collector = discovery.NewCollector()
		opts.Collector.SetLogger(opts.Logger)
	}

	return &Bridge{
		collector:    opts.Collector,
		orchestrator: opts.Orchestrator,
		root:         opts.RootTopic,
		logger:       opts.Logger,
	}, nil
}

// HandleConnected opens a new discovery session.
func (b *Bridge) HandleConnected(_ context.Context) {
	s := discovery.NewSession(b.root)
	b.collector.Begin(s)

	b.mu.Lock()
	b.status.Connected = true
	b.status.WindowOpen = true
	b.status.SessionID = s.ID()
	b.status.Connections++
	b.mu.Unlock()

	b.logger.Info("discovery session opened", "session_id", s.ID(), "root", b.root)
}

// HandleDiscoveryMessage records one config message in the open session.
// Per-message errors are logged by the collector and otherwise ignored.
func (b *Bridge) HandleDiscoveryMessage(ctx context.Context, topic string, payload []byte) {
	_ = b.collector.HandleDiscoveryMessage(ctx, topic, payload) //nolint:errcheck // logged by the collector
}

// HandleRuntimeMessage counts live messages. Nothing consumes them yet.
func (b *Bridge) HandleRuntimeMessage(_ context.Context, topic string, payload []byte) {
	b.mu.Lock()
	b.status.RuntimeMessages++
	b.mu.Unlock()

	b.logger.Debug("runtime message", "topic", topic, "bytes", len(payload))
}

// HandleWindowClosed freezes the session and registers its devices.
func (b *Bridge) HandleWindowClosed(ctx context.Context) {
	snap, err := b.collector.Close()
	if err != nil {
		b.logger.Error("closing discovery session", "error", err)
		b.mu.Lock()
		b.status.WindowOpen = false
		b.status.LastError = err.Error()
		b.mu.Unlock()
		return
	}

	report := b.orchestrator.RegisterSession(ctx, snap)
	closedAt := report.Stats.ClosedAt

	b.mu.Lock()
	b.status.WindowOpen = false
	b.status.LastReport = &report
	b.status.LastClosedAt = &closedAt
	b.mu.Unlock()
}

// HandleDisconnected records the lost connection. The transport reconnects
// on its own; the next HandleConnected starts a new session.
func (b *Bridge) HandleDisconnected(_ context.Context, err error) {
	b.mu.Lock()
	b.status.Connected = false
	if err != nil {
		b.status.LastError = err.Error()
	}
	b.mu.Unlock()
}

// HandleTransportError logs a non-fatal transport error.
func (b *Bridge) HandleTransportError(_ context.Context, err error) {
	b.logger.Error("transport error", "error", err)
	b.setError(err)
}

// Status returns a copy of the current status.
func (b *Bridge) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := b.status
	if b.status.LastReport != nil {
		r := *b.status.LastReport
		r.Registered = append([]string(nil), r.Registered...)
		r.Failed = make(map[string]error, len(b.status.LastReport.Failed))
		for k, v := range b.status.LastReport.Failed {
			r.Failed[k] = v
		}
		st.LastReport = &r
	}
	return st
}

func (b *Bridge) setError(err error) {
	b.mu.Lock()
	b.status.LastError = err.Error()
	b.mu.Unlock()
}
