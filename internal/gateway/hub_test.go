package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holdoutgame/holdout/internal/protocol"
)

func newTestConn(h *Hub, id string, buffer int) *Connection {
	return &Connection{
		id:   id,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		hub:  h,
	}
}

func TestHubBroadcastReachesAllConnections(t *testing.T) {
	h := NewHub()
	c1 := newTestConn(h, "c1", 4)
	c2 := newTestConn(h, "c2", 4)
	h.register(c1)
	h.register(c2)

	h.Broadcast(protocol.NewCountdown(5))

	for _, c := range []*Connection{c1, c2} {
		select {
		case data := <-c.send:
			var msg protocol.Countdown
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, protocol.MsgCountdown, msg.Type)
			assert.Equal(t, 5, msg.Countdown)
		default:
			t.Fatalf("connection %s received nothing", c.id)
		}
	}
}

func TestHubClosesSlowConnections(t *testing.T) {
	h := NewHub()
	fast := newTestConn(h, "fast", 4)
	slow := newTestConn(h, "slow", 1)
	h.register(fast)
	h.register(slow)
	require.Equal(t, 2, h.Count())

	h.Broadcast(protocol.NewCountdown(3)) // fills slow's buffer
	h.Broadcast(protocol.NewCountdown(2)) // overflows it

	assert.Equal(t, 1, h.Count(), "slow connection should be dropped")
	select {
	case <-slow.done:
	default:
		t.Fatal("slow connection should be closed")
	}

	// The fast connection keeps receiving.
	assert.Len(t, fast.send, 2)
}

func TestConnectionSendAfterClose(t *testing.T) {
	h := NewHub()
	c := newTestConn(h, "c1", 4)
	h.register(c)

	c.close()
	c.close() // idempotent

	err := c.Send(protocol.NewCountdown(1))
	assert.ErrorIs(t, err, errConnClosed)
	assert.Zero(t, h.Count())
}

func TestHubUnregisterUnknownConnection(t *testing.T) {
	h := NewHub()
	c := newTestConn(h, "c1", 1)
	h.unregister(c) // never registered, must not panic
	assert.Zero(t, h.Count())
}
