// Package game implements the authoritative state machine for a
// hold-the-button elimination game. Players ready up, every round opens with
// a countdown, holders burn through a fixed time budget while the decay loop
// runs, and the last non-eliminated player standing is the champion.
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/holdoutgame/holdout/internal/protocol"
)

// adminPlayerID identifies the only player allowed to reset the game: the
// first connection admitted in the current process.
const adminPlayerID = 1

const maxNameLength = 20

// Sender is the outbound half of a client connection.
type Sender interface {
	Send(v any) error
}

// Broadcaster fans a message out to every open connection, including
// connections whose player was wiped by a reset.
type Broadcaster interface {
	Broadcast(v any)
}

// Phase is the game's position in the round state machine.
type Phase int

const (
	PhaseWaitingForReady Phase = iota
	PhaseCountdown
	PhaseRoundActive
	PhaseRoundResolving
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseWaitingForReady:
		return "waiting_for_ready"
	case PhaseCountdown:
		return "countdown"
	case PhaseRoundActive:
		return "round_active"
	case PhaseRoundResolving:
		return "round_resolving"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Config holds the tunable rules of a game instance.
type Config struct {
	// InitialTimeMs is each player's full hold budget in milliseconds.
	InitialTimeMs int
	// MinPlayers is the minimum roster size for a game to start or continue.
	MinPlayers int
	// CountdownSeconds is the pre-round window players get to start holding.
	CountdownSeconds int
	// TickInterval is the decay loop period; each tick drains that many
	// milliseconds from every eligible holder.
	TickInterval time.Duration
	// SettleDelay is the pause between a round outcome and the game-over or
	// next-round evaluation, so clients can render the result.
	SettleDelay time.Duration
	// CarryHolding keeps a player's held button counted across the gap
	// between rounds. This rewards continuous holding and is the product
	// behavior; set false to force everyone to re-press each countdown.
	CarryHolding bool
}

// DefaultConfig returns the standard rules: a 10 minute budget, two player
// minimum, 5 second countdown, 100ms decay tick and a 2 second settle delay.
func DefaultConfig() Config {
	return Config{
		InitialTimeMs:    10 * 60 * 1000,
		MinPlayers:       2,
		CountdownSeconds: 5,
		TickInterval:     100 * time.Millisecond,
		SettleDelay:      2 * time.Second,
		CarryHolding:     true,
	}
}

// Game owns the roster and the round state machine. All mutation happens
// under one mutex, so connection events, client messages and timer callbacks
// form a single serialized timeline; broadcasts for a mutation are enqueued
// before the lock is released.
type Game struct {
	mu    sync.Mutex
	cfg   Config
	clock clockwork.Clock
	net   Broadcaster

	players      []*Player // insertion order = connection order
	nextPlayerID int
	phase        Phase

	// holding caches the decay-eligible holders of the active round. It is
	// mutated only through setHoldingLocked so it cannot drift from the
	// per-player flags.
	holding map[int]struct{}

	countdownLeft int

	// At most one of countdown and decay is non-nil at any instant.
	countdown *task
	decay     *task
	settle    *task
}

// New creates a game with no players in the pre-game phase. Pass
// clockwork.NewRealClock() in production and a fake clock in tests.
func New(cfg Config, net Broadcaster, clock clockwork.Clock) *Game {
	return &Game{
		cfg:          cfg,
		clock:        clock,
		net:          net,
		nextPlayerID: 1,
		phase:        PhaseWaitingForReady,
		holding:      make(map[int]struct{}),
	}
}

// Connect admits a freshly opened connection and returns the assigned
// player id. IDs are strictly increasing and never reused within the
// process lifetime.
func (g *Game) Connect(s Sender) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admitLocked(s)
}

// Disconnect removes the player on connection close or transport failure.
func (g *Game) Disconnect(playerID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(playerID)
}

// HandleMessage processes one client frame. playerID is the id currently
// bound to the sending connection; the returned id replaces it, which only
// matters for a join after a reset wiped the roster. Malformed and unknown
// messages are logged and dropped.
func (g *Game) HandleMessage(s Sender, playerID int, data []byte) int {
	msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Warn().Err(err).Int("player_id", playerID).Msg("malformed client message - ignoring")
		return playerID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch msg.Type {
	case protocol.MsgJoin:
		if g.findLocked(playerID) != nil {
			return playerID
		}
		return g.admitLocked(s)
	case protocol.MsgSetPlayerName:
		g.renameLocked(msg.PlayerID, msg.Name)
	case protocol.MsgPlayerReady:
		g.markReadyLocked(msg.PlayerID)
	case protocol.MsgHold:
		g.holdLocked(msg.PlayerID)
	case protocol.MsgRelease:
		g.releaseLocked(msg.PlayerID)
	case protocol.MsgResetGame:
		g.resetLocked(msg.PlayerID)
	default:
		log.Warn().Str("msg_type", msg.Type).Msg("unknown message type - ignoring")
	}
	return playerID
}

// Phase reports the current phase of the state machine.
func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// PlayerCount reports the current roster size.
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// --- Roster ---

func (g *Game) admitLocked(s Sender) int {
	id := g.nextPlayerID
	g.nextPlayerID++

	p := &Player{
		ID:              id,
		Name:            fmt.Sprintf("Player %d", id),
		TimeRemainingMs: g.cfg.InitialTimeMs,
		conn:            s,
	}
	g.players = append(g.players, p)

	log.Info().
		Int("player_id", id).
		Int("total_players", len(g.players)).
		Msg("player admitted")

	p.send(protocol.NewPlayerConnected(id))
	g.broadcastStatusLocked()
	return id
}

func (g *Game) renameLocked(playerID int, name string) {
	p := g.findLocked(playerID)
	if p == nil || name == "" {
		return
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	p.Name = name
	g.broadcastStatusLocked()
}

func (g *Game) removeLocked(playerID int) {
	p := g.findLocked(playerID)
	if p == nil {
		return
	}
	for i, q := range g.players {
		if q.ID == playerID {
			g.players = append(g.players[:i], g.players[i+1:]...)
			break
		}
	}
	delete(g.holding, playerID)

	log.Info().
		Int("player_id", playerID).
		Int("total_players", len(g.players)).
		Msg("player left")

	g.broadcastStatusLocked()
	g.net.Broadcast(protocol.NewPlayerLeft(p.ID, p.Name, g.snapshotLocked()))

	if g.inGameLocked() {
		actives := g.activeLocked()
		switch {
		case len(actives) == 1:
			// Last one standing takes the game immediately.
			g.endGameLocked(actives[0])
		case len(actives) == 0:
			g.endGameLocked(nil)
		case len(g.players) < g.cfg.MinPlayers:
			log.Info().Msg("roster fell below minimum mid-game - resetting")
			g.forceResetLocked("Not enough players left. Game reset.")
		}
		return
	}
	if g.phase == PhaseWaitingForReady {
		// The departure may leave everyone remaining ready.
		g.evaluateReadyGateLocked()
	}
}

// --- Ready gate ---

func (g *Game) markReadyLocked(playerID int) {
	if g.phase != PhaseWaitingForReady {
		return
	}
	p := g.findLocked(playerID)
	if p == nil || p.Eliminated || p.IsReady {
		return
	}
	p.IsReady = true
	log.Debug().Int("player_id", playerID).Msg("player ready")
	g.broadcastStatusLocked()
	g.evaluateReadyGateLocked()
}

func (g *Game) evaluateReadyGateLocked() {
	if g.phase != PhaseWaitingForReady {
		return
	}
	actives := g.activeLocked()
	if len(actives) < g.cfg.MinPlayers {
		return
	}
	for _, p := range actives {
		if !p.IsReady {
			return
		}
	}
	for _, p := range actives {
		p.IsReady = false
	}

	log.Info().Int("players", len(actives)).Msg("all players ready - game starting")
	g.net.Broadcast(protocol.NewGameStart(g.snapshotLocked()))
	g.startCountdownLocked()
}

// --- Countdown ---

func (g *Game) startCountdownLocked() {
	if g.countdown != nil || g.decay != nil || g.phase == PhaseRoundActive {
		log.Debug().Stringer("phase", g.phase).Msg("countdown start requested while busy - ignoring")
		return
	}
	g.phase = PhaseCountdown

	for _, p := range g.players {
		if p.Eliminated {
			continue
		}
		p.BlockedInRound = false
		if !g.cfg.CarryHolding {
			g.setHoldingLocked(p, false)
		}
	}
	g.broadcastStatusLocked()

	g.countdownLeft = g.cfg.CountdownSeconds
	g.net.Broadcast(protocol.NewCountdown(g.countdownLeft))
	g.countdown = g.startTicker(time.Second, g.onCountdownTick)
}

func (g *Game) onCountdownTick(t *task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.countdown != t {
		return
	}

	g.countdownLeft--
	g.net.Broadcast(protocol.NewCountdown(g.countdownLeft))
	if g.countdownLeft > 0 {
		return
	}

	g.countdown.cancel()
	g.countdown = nil

	// Whoever is not pressing when the window closes sits this round out.
	for _, p := range g.players {
		if p.Eliminated || p.Holding {
			continue
		}
		p.BlockedInRound = true
		p.send(protocol.NewBlockPlayer(p.ID))
	}
	g.broadcastStatusLocked()
	g.beginRoundLocked()
}

// --- Round / decay loop ---

func (g *Game) beginRoundLocked() {
	g.holding = make(map[int]struct{})
	for _, p := range g.players {
		if p.Holding && !p.Eliminated && !p.BlockedInRound {
			g.holding[p.ID] = struct{}{}
		}
	}

	if len(g.holding) == 0 {
		log.Info().Msg("nobody held through the countdown - round has no winner")
		g.resolveRoundLocked(nil)
		return
	}

	g.phase = PhaseRoundActive
	g.net.Broadcast(protocol.NewRoundStart(g.snapshotLocked()))
	g.decay = g.startTicker(g.cfg.TickInterval, g.onDecayTick)
}

func (g *Game) onDecayTick(t *task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decay != t {
		return
	}

	holders := g.eligibleHoldersLocked()
	switch len(holders) {
	case 1:
		g.resolveRoundLocked(holders[0])
		return
	case 0:
		log.Info().Msg("no eligible holders left - round has no winner")
		g.resolveRoundLocked(nil)
		return
	}

	dec := int(g.cfg.TickInterval / time.Millisecond)
	for _, p := range holders {
		p.TimeRemainingMs -= dec
		if p.TimeRemainingMs <= 0 {
			p.TimeRemainingMs = 0
			p.Eliminated = true
			g.setHoldingLocked(p, false)
			log.Info().Int("player_id", p.ID).Msg("player eliminated - time budget exhausted")
			p.send(protocol.NewPlayerEliminated(p.ID, g.snapshotLocked()))
			continue
		}
		// Exact remaining time goes only to the holder; everyone else sees
		// coarse status.
		p.send(protocol.NewTimeUpdate(p.TimeRemainingMs))
	}
	g.broadcastStatusLocked()
}

func (g *Game) holdLocked(playerID int) {
	p := g.findLocked(playerID)
	if p == nil || p.Eliminated || p.BlockedInRound || !g.inGameLocked() {
		return
	}
	if p.Holding {
		return
	}
	g.setHoldingLocked(p, true)
	g.broadcastStatusLocked()
}

func (g *Game) releaseLocked(playerID int) {
	p := g.findLocked(playerID)
	if p == nil || p.Eliminated || p.BlockedInRound || !g.inGameLocked() {
		return
	}
	if !p.Holding {
		return
	}
	g.setHoldingLocked(p, false)
	g.broadcastStatusLocked()

	if g.phase != PhaseRoundActive {
		return
	}
	holders := g.eligibleHoldersLocked()
	switch len(holders) {
	case 1:
		g.resolveRoundLocked(holders[0])
	case 0:
		log.Info().Msg("everyone released - round has no winner")
		g.resolveRoundLocked(nil)
	}
}

// --- Resolution ---

func (g *Game) resolveRoundLocked(winner *Player) {
	g.countdown.cancel()
	g.countdown = nil
	g.decay.cancel()
	g.decay = nil
	g.phase = PhaseRoundResolving

	for _, p := range g.players {
		if !p.Eliminated {
			p.BlockedInRound = false
		}
	}

	if winner != nil {
		log.Info().Int("winner_id", winner.ID).Str("winner_name", winner.Name).Msg("round won")
		g.net.Broadcast(protocol.NewRoundWinner(winner.ID, winner.Name, g.snapshotLocked()))
	} else {
		g.net.Broadcast(protocol.NewRoundNoWinner(g.snapshotLocked()))
	}

	// Only the round's eligibility view is discarded; per-player holding
	// flags survive so a button held through the gap carries into the next
	// countdown.
	g.holding = make(map[int]struct{})

	g.settle.cancel()
	g.settle = g.startTimer(g.cfg.SettleDelay, g.onSettle)
}

func (g *Game) onSettle(t *task) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.settle != t {
		return
	}
	g.settle = nil
	g.evaluateGameOverLocked()
}

func (g *Game) evaluateGameOverLocked() {
	if g.phase != PhaseRoundResolving {
		return
	}
	actives := g.activeLocked()
	switch {
	case len(actives) == 1:
		g.endGameLocked(actives[0])
	case len(actives) == 0:
		g.endGameLocked(nil)
	default:
		for _, p := range actives {
			p.IsReady = false
			p.BlockedInRound = false
		}
		g.startCountdownLocked()
	}
}

func (g *Game) endGameLocked(champion *Player) {
	g.cancelTimersLocked()
	g.phase = PhaseGameOver
	for _, p := range g.players {
		p.IsReady = false
	}

	if champion != nil {
		log.Info().Int("winner_id", champion.ID).Str("winner_name", champion.Name).Msg("game over - champion decided")
		g.net.Broadcast(protocol.NewGameOver(champion.ID, champion.Name, g.snapshotLocked()))
		return
	}
	log.Info().Msg("game over - every remaining player eliminated")
	g.net.Broadcast(protocol.NewGameOverNoChampion("Every remaining player ran out of time.", g.snapshotLocked()))
}

// --- Reset ---

func (g *Game) resetLocked(playerID int) {
	if playerID != adminPlayerID {
		log.Warn().Int("player_id", playerID).Msg("reset requested by non-admin - ignoring")
		return
	}
	log.Info().Msg("admin reset requested")
	g.forceResetLocked("")
}

// forceResetLocked wipes the roster and returns to the empty pre-game state.
// Open connections stay open; their next join message re-admits them.
func (g *Game) forceResetLocked(message string) {
	g.cancelTimersLocked()
	g.players = nil
	g.nextPlayerID = 1
	g.holding = make(map[int]struct{})
	g.phase = PhaseWaitingForReady
	g.net.Broadcast(protocol.NewGameReset(message))
}

// --- Helpers ---

func (g *Game) cancelTimersLocked() {
	g.countdown.cancel()
	g.countdown = nil
	g.decay.cancel()
	g.decay = nil
	g.settle.cancel()
	g.settle = nil
}

// setHoldingLocked is the single mutation path for the holding flag and the
// cached eligibility set, keeping the two in lockstep.
func (g *Game) setHoldingLocked(p *Player, holding bool) {
	p.Holding = holding
	if holding && !p.Eliminated && !p.BlockedInRound {
		g.holding[p.ID] = struct{}{}
	} else {
		delete(g.holding, p.ID)
	}
}

func (g *Game) findLocked(playerID int) *Player {
	for _, p := range g.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (g *Game) activeLocked() []*Player {
	var actives []*Player
	for _, p := range g.players {
		if !p.Eliminated {
			actives = append(actives, p)
		}
	}
	return actives
}

func (g *Game) eligibleHoldersLocked() []*Player {
	var holders []*Player
	for _, p := range g.players {
		if p.Holding && !p.Eliminated && !p.BlockedInRound {
			holders = append(holders, p)
		}
	}
	return holders
}

// inGameLocked reports whether a game is in progress, countdown and settle
// gaps included.
func (g *Game) inGameLocked() bool {
	switch g.phase {
	case PhaseCountdown, PhaseRoundActive, PhaseRoundResolving:
		return true
	}
	return false
}

func (g *Game) snapshotLocked() []protocol.PlayerSnapshot {
	snap := make([]protocol.PlayerSnapshot, 0, len(g.players))
	for _, p := range g.players {
		snap = append(snap, protocol.PlayerSnapshot{
			ID:             p.ID,
			Name:           p.Name,
			Holding:        p.Holding,
			Eliminated:     p.Eliminated,
			BlockedInRound: p.BlockedInRound,
			IsReady:        p.IsReady,
		})
	}
	return snap
}

// broadcastStatusLocked sends the roster snapshot to everyone. While waiting
// for players to ready up it also sends the ready-count summary so observers
// can render progress without recomputing it.
func (g *Game) broadcastStatusLocked() {
	g.net.Broadcast(protocol.NewPlayerStatusUpdate(g.snapshotLocked()))
	if g.phase != PhaseWaitingForReady {
		return
	}
	actives := g.activeLocked()
	ready := 0
	for _, p := range actives {
		if p.IsReady {
			ready++
		}
	}
	g.net.Broadcast(protocol.NewWaitingForReady(ready, len(actives), g.cfg.MinPlayers))
}
