package api

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-bridge/internal/bridges/hass"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-bridge/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// ChannelAll subscribes to every bridge event channel.
const ChannelAll = "bridge.*"

// eventChannels are the channels the bridge broadcasts on.
var eventChannels = map[string]struct{}{
	hass.EventDeviceRegistered:   {},
	hass.EventRegistrationFailed: {},
	hass.EventSessionClosed:      {},
}

// validChannel reports whether ch can be subscribed to.
func validChannel(ch string) bool {
	if ch == ChannelAll {
		return true
	}
	_, ok := eventChannels[ch]
	return ok
}

// WSMessage is the envelope of every message sent to a client.
//
// Events carry a hub-wide sequence number so clients can spot gaps after a
// slow-consumer drop. Retained is set on the replay of a channel's last
// event that a client receives when it subscribes.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	Retained  bool   `json:"retained,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub fans bridge events (bridge.device_registered,
// bridge.registration_failed, bridge.session_closed) out to subscribed
// WebSocket clients and keeps the last event of each channel for replay.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu       sync.RWMutex
	clients  map[*WSClient]struct{}
	seq      uint64
	retained map[string]WSMessage

	dropped atomic.Uint64
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[*WSClient]struct{}),
		retained: make(map[string]WSMessage),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "client_id", client.id, "clients", n)
}

// Unregister removes a client from the hub.
// Only the call that removes the client closes its send channel, so
// concurrent shutdown paths cannot double-close it.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.logger.Debug("websocket client disconnected", "client_id", client.id, "clients", n)
	}
}

// Broadcast sends an event to every client subscribed to channel and
// retains it as the channel's last event. It never blocks on a slow
// client: a full buffer drops the event for that client.
func (h *Hub) Broadcast(channel string, payload any) {
	h.mu.Lock()
	h.seq++
	msg := WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Seq:       h.seq,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}
	h.retained[channel] = msg

	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	var sent, dropped int
	for _, client := range clients {
		if !client.isSubscribed(channel) {
			continue
		}
		if client.trySend(data) {
			sent++
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		h.dropped.Add(uint64(dropped))
		h.logger.Warn("websocket events dropped for slow clients",
			"channel", channel,
			"seq", msg.Seq,
			"dropped", dropped,
		)
	}
	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "seq", msg.Seq, "recipients", sent)
	}
}

// Retained returns the last event of each requested channel, oldest first.
// ChannelAll selects every channel.
func (h *Hub) Retained(channels ...string) []WSMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []WSMessage
	seen := make(map[string]struct{}, len(h.retained))
	for _, ch := range channels {
		for name, msg := range h.retained {
			if _, dup := seen[name]; dup {
				continue
			}
			if ch == ChannelAll || ch == name {
				seen[name] = struct{}{}
				msg.Retained = true
				out = append(out, msg)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many event deliveries were skipped for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}
