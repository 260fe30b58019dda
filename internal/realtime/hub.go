// Package realtime is the channel transport: a registry of attached
// websocket connections with per-connection send queues, optionally relayed
// between instances over Redis.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Message is the wire frame in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: data})
}

// Publisher forwards frames to other instances.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Envelope carries a frame between instances. An empty Channel means
// broadcast.
type Envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel,omitempty"`
	Frame   json.RawMessage `json:"frame"`
}

type Hub struct {
	conns           sync.Map // channel id -> *Conn
	origin          string
	eventsPerSecond float64

	mu    sync.RWMutex
	relay Publisher
}

func NewHub(eventsPerSecond float64) *Hub {
	return &Hub{origin: uuid.NewString(), eventsPerSecond: eventsPerSecond}
}

func (h *Hub) Origin() string { return h.origin }

// SetRelay enables cross-instance delivery.
func (h *Hub) SetRelay(p Publisher) {
	h.mu.Lock()
	h.relay = p
	h.mu.Unlock()
}

func (h *Hub) publisher() Publisher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.relay
}

// Attach registers a socket under a fresh channel id and starts its write
// pump.
func (h *Hub) Attach(sock socket, actorID, kind string) *Conn {
	c := newConn(uuid.NewString(), actorID, kind, sock, h.eventsPerSecond)
	h.conns.Store(c.ID, c)
	go c.writePump()
	slog.Debug("channel attached", "channel_id", c.ID, "actor_id", actorID, "actor_kind", kind)
	return c
}

// Detach removes the connection and stops its pump. Safe to repeat.
func (h *Hub) Detach(c *Conn) {
	h.conns.CompareAndDelete(c.ID, c)
	c.close()
}

func (h *Hub) Connected(channelID string) bool {
	_, ok := h.conns.Load(channelID)
	return ok
}

// Emit delivers to one channel. It reports false when the channel is neither
// attached here nor reachable through a relay.
func (h *Hub) Emit(channelID, event string, payload any) bool {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Error("failed to encode event", "channel_id", channelID, "event", event, "error", err.Error())
		return false
	}
	if v, ok := h.conns.Load(channelID); ok {
		return v.(*Conn).enqueue(frame)
	}
	return h.publish(Envelope{Origin: h.origin, Channel: channelID, Frame: frame})
}

// Broadcast delivers to every attached channel on every instance.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Error("failed to encode event", "event", event, "error", err.Error())
		return
	}
	h.fanOut(frame)
	h.publish(Envelope{Origin: h.origin, Frame: frame})
}

// Receive applies an envelope published by another instance.
func (h *Hub) Receive(env Envelope) {
	if env.Origin == h.origin {
		return
	}
	if env.Channel == "" {
		h.fanOut(env.Frame)
		return
	}
	if v, ok := h.conns.Load(env.Channel); ok {
		v.(*Conn).enqueue(env.Frame)
	}
}

func (h *Hub) fanOut(frame []byte) {
	h.conns.Range(func(_, v any) bool {
		v.(*Conn).enqueue(frame)
		return true
	})
}

func (h *Hub) publish(env Envelope) bool {
	p := h.publisher()
	if p == nil {
		return false
	}
	if err := p.Publish(context.Background(), env); err != nil {
		slog.Warn("relay publish failed", "channel_id", env.Channel, "error", err.Error())
		return false
	}
	return true
}

// Close detaches every connection.
func (h *Hub) Close() {
	h.conns.Range(func(k, v any) bool {
		h.conns.Delete(k)
		v.(*Conn).close()
		return true
	})
}

// Count returns the number of locally attached connections.
func (h *Hub) Count() int {
	n := 0
	h.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
