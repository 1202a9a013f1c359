package discovery

import (
	"context"
	"errors"
	"fmt"
)

// Logger defines the logging interface used by the Collector.
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

// Rejecter receives discovery messages the collector refused.
// Implementations must not block.
type Rejecter interface {
	Reject(ctx context.Context, topic string, payload []byte, reason error) error
}

// Collector turns discovery messages into the current Session's graph.
//
// It is driven from a single goroutine: Begin on connect, one
// HandleDiscoveryMessage per config message while the window is open,
// Close when the window expires.
type Collector struct {
	session  *Session
	logger   Logger
	rejecter Rejecter
}

// NewCollector creates a collector with no open session.
func NewCollector() *Collector {
	return &Collector{logger: noopLogger{}}
}

// SetLogger sets the logger for recoverable per-message errors.
func (c *Collector) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// SetRejecter forwards malformed and incomplete messages to r.
func (c *Collector) SetRejecter(r Rejecter) {
	c.rejecter = r
}

// Begin makes s the current session. Any previous session is dropped
// unfrozen; its entities never reach the orchestrator.
func (c *Collector) Begin(s *Session) {
	if c.session != nil && !c.session.Frozen() {
		c.logger.Info("discarding unfinished discovery session",
			"session_id", c.session.ID(),
			"entities", c.session.Len(),
		)
	}
	c.session = s
}

// Session returns the current session, or nil.
func (c *Collector) Session() *Session {
	return c.session
}

// HandleDiscoveryMessage parses one config message and records it.
//
// Malformed payloads and payloads missing a required field are logged,
// counted and dropped; duplicates of an already recorded entity id are
// dropped silently. The returned error describes why a message was not
// recorded, for callers that want it; the session stays consistent either way.
// Messages may arrive in any order.
func (c *Collector) HandleDiscoveryMessage(ctx context.Context, topic string, payload []byte) error {
	s := c.session
	if s == nil {
		return ErrNoSession
	}
	if s.Frozen() {
		return ErrSessionFrozen
	}

	entity, err := ParseEntity(s.RootTopic(), topic, payload)
	if err != nil {
		s.recordRejected()
		c.logger.Warn("dropping discovery message",
			"topic", topic,
			"bytes", len(payload),
			"error", err,
		)
		c.reject(ctx, topic, payload, err)
		return err
	}

	if err := s.Add(entity); err != nil {
		if errors.Is(err, ErrDuplicateEntity) {
			c.logger.Debug("ignoring repeated discovery message",
				"topic", topic,
				"entity_id", entity.EntityID,
			)
		}
		return err
	}

	c.logger.Debug("entity discovered",
		"entity_id", entity.EntityID,
		"device_id", entity.DeviceIdentifier,
		"type", entity.DiscoveryType,
	)
	return nil
}

func (c *Collector) reject(ctx context.Context, topic string, payload []byte, reason error) {
	if c.rejecter == nil {
		return
	}
	if err := c.rejecter.Reject(ctx, topic, payload, reason); err != nil {
		c.logger.Debug("dead-letter rejected message", "topic", topic, "error", err)
	}
}

// Close freezes the current session and detaches it from the collector.
// Messages arriving afterwards get ErrNoSession until the next Begin.
func (c *Collector) Close() (*Snapshot, error) {
	s := c.session
	if s == nil {
		return nil, ErrNoSession
	}
	snap, err := s.Freeze()
	if err != nil {
		return nil, fmt.Errorf("closing session %s: %w", s.ID(), err)
	}
	c.session = nil
	return snap, nil
}
