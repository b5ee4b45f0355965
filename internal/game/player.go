package game

import "github.com/rs/zerolog/log"

// Player is one roster entry, created when a connection is admitted and
// removed when it closes. The outbound connection is held as a send-only
// capability; the game never reads from it.
type Player struct {
	ID              int
	Name            string
	TimeRemainingMs int
	Holding         bool
	Eliminated      bool
	BlockedInRound  bool
	IsReady         bool

	conn Sender
}

// send unicasts a message to this player. Transport failures are logged and
// otherwise ignored; the connection's own read path handles teardown.
func (p *Player) send(v any) {
	if p.conn == nil {
		return
	}
	if err := p.conn.Send(v); err != nil {
		log.Warn().Err(err).Int("player_id", p.ID).Msg("failed to send message to player")
	}
}
