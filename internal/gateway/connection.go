package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/holdoutgame/holdout/internal/game"
)

// Config holds transport settings for WebSocket connections.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production.
			return true
		},
	}
}

// Connection is one client's WebSocket session. Outbound messages go through
// a buffered send channel drained by writePump; the game side only ever sees
// the Send capability.
type Connection struct {
	id       string
	playerID int // owned by readPump after admission

	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	hub *Hub
	gm  *game.Game
	cfg Config
}

var errConnClosed = errors.New("connection closed")

// Send marshals v and queues it for delivery. A full buffer means the client
// stopped draining; the connection is closed rather than blocking the game.
func (c *Connection) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return c.sendRaw(data)
}

func (c *Connection) sendRaw(data []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("connection_id", c.id).Msg("send buffer full, closing connection")
		c.close()
		return errors.New("send buffer full")
	}
}

// close tears the connection down exactly once: read/write pump errors, slow
// consumers and server shutdown all funnel through here.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
		c.hub.unregister(c)
	})
}

// writePump drains the send channel and keeps the connection alive with
// periodic pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("ping failed")
				return
			}
		}
	}
}

// readPump feeds inbound frames to the game. Any read error, clean close
// included, tears the connection down and removes the player from the roster.
func (c *Connection) readPump() {
	defer func() {
		c.close()
		c.gm.Disconnect(c.playerID)
	}()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).Msg("unexpected WebSocket close")
			}
			return
		}
		c.playerID = c.gm.HandleMessage(c, c.playerID, data)
		c.ws.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
}
