package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/holdoutgame/holdout/internal/game"
)

// Handler upgrades HTTP requests to WebSocket connections and binds them to
// the game.
type Handler struct {
	hub      *Hub
	gm       *game.Game
	cfg      Config
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, gm *game.Game, cfg Config) *Handler {
	return &Handler{
		hub: hub,
		gm:  gm,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// HandleGameConnection admits a new player for the lifetime of the socket.
func (h *Handler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := &Connection{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
		hub:  h.hub,
		gm:   h.gm,
		cfg:  h.cfg,
	}
	h.hub.register(c)

	// The write pump must be draining before admission so the welcome
	// messages have somewhere to go; reads start only after the player id
	// is bound.
	go c.writePump()
	c.playerID = h.gm.Connect(c)
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Int("player_id", c.playerID).
		Msg("WebSocket connection established")
}

type statsResponse struct {
	TotalConnections int    `json:"total_connections"`
	TotalPlayers     int    `json:"total_players"`
	Phase            string `json:"phase"`
}

// HandleConnectionStats reports open connections and the game phase.
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := statsResponse{
		TotalConnections: h.hub.Count(),
		TotalPlayers:     h.gm.PlayerCount(),
		Phase:            h.gm.Phase().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to write stats response")
	}
}

// RegisterRoutes registers the gateway's routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
