package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub is the registry of open connections and the game's broadcast fan-out.
// Broadcasts reach every open connection, roster member or not, which is what
// lets a reset notification reach connections whose player was just wiped.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Connection]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*Connection]struct{})}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
	log.Debug().Str("connection_id", c.id).Int("total_connections", len(h.conns)).Msg("connection registered")
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	log.Debug().Str("connection_id", c.id).Int("total_connections", len(h.conns)).Msg("connection unregistered")
}

// Broadcast marshals v once and queues it on every open connection. Slow
// consumers get closed by their own send path rather than stalling the rest.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.sendRaw(data); err != nil {
			log.Debug().Err(err).Str("connection_id", c.id).Msg("broadcast delivery failed")
		}
	}
}

// Count reports the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
