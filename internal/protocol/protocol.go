package protocol

import "encoding/json"

// Client -> server message types.
const (
	MsgJoin          = "join"
	MsgSetPlayerName = "setPlayerName"
	MsgPlayerReady   = "playerReady"
	MsgHold          = "hold"
	MsgRelease       = "release"
	MsgResetGame     = "resetGame"
)

// Server -> client message types.
const (
	MsgPlayerConnected    = "playerConnected"
	MsgPlayerStatusUpdate = "playerStatusUpdate"
	MsgWaitingForReady    = "waitingForReady"
	MsgGameStart          = "gameStart"
	MsgRoundStart         = "roundStart"
	MsgCountdown          = "countdown"
	MsgBlockPlayer        = "blockPlayer"
	MsgPlayerEliminated   = "playerEliminated"
	MsgTimeUpdate         = "timeUpdate"
	MsgRoundWinner        = "roundWinner"
	MsgRoundNoWinner      = "roundEndedNoWinner"
	MsgGameOver           = "gameOver"
	MsgPlayerLeft         = "playerLeft"
	MsgGameReset          = "gameReset"
)

// ClientMessage is the envelope for everything a client sends. All client
// messages are flat, so a single struct covers the whole table.
type ClientMessage struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ParseClientMessage decodes a raw frame from a client.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// PlayerSnapshot is the per-player roster entry carried by every
// roster-bearing server message. Exact remaining time is deliberately
// absent; only the holder learns it, via TimeUpdate unicasts.
type PlayerSnapshot struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Holding        bool   `json:"holding"`
	Eliminated     bool   `json:"eliminated"`
	BlockedInRound bool   `json:"blockedInRound"`
	IsReady        bool   `json:"isReady"`
}

type PlayerConnected struct {
	Type     string `json:"type"`
	PlayerID int    `json:"playerId"`
}

type PlayerStatusUpdate struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
}

type WaitingForReady struct {
	Type         string `json:"type"`
	ReadyCount   int    `json:"readyCount"`
	TotalPlayers int    `json:"totalPlayers"`
	MinPlayers   int    `json:"minPlayers"`
}

type GameStart struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
}

type RoundStart struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
}

type Countdown struct {
	Type      string `json:"type"`
	Countdown int    `json:"countdown"`
}

type BlockPlayer struct {
	Type            string `json:"type"`
	PlayerIDToBlock int    `json:"playerIdToBlock"`
}

type PlayerEliminated struct {
	Type               string           `json:"type"`
	EliminatedPlayerID int              `json:"eliminatedPlayerId"`
	Players            []PlayerSnapshot `json:"players"`
}

type TimeUpdate struct {
	Type          string `json:"type"`
	RemainingTime int    `json:"remainingTime"`
}

type RoundWinner struct {
	Type       string           `json:"type"`
	WinnerID   int              `json:"winnerId"`
	WinnerName string           `json:"winnerName"`
	Players    []PlayerSnapshot `json:"players"`
}

type RoundNoWinner struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
}

// GameOver carries the champion, or WinnerID 0 plus Message when every
// remaining contender ran out of time in the same tick.
type GameOver struct {
	Type       string           `json:"type"`
	WinnerID   int              `json:"winnerId"`
	WinnerName string           `json:"winnerName,omitempty"`
	Message    string           `json:"message,omitempty"`
	Players    []PlayerSnapshot `json:"players"`
}

type PlayerLeft struct {
	Type       string           `json:"type"`
	PlayerID   int              `json:"playerId"`
	PlayerName string           `json:"playerName"`
	Players    []PlayerSnapshot `json:"players"`
}

type GameReset struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

func NewPlayerConnected(id int) PlayerConnected {
	return PlayerConnected{Type: MsgPlayerConnected, PlayerID: id}
}

func NewPlayerStatusUpdate(players []PlayerSnapshot) PlayerStatusUpdate {
	return PlayerStatusUpdate{Type: MsgPlayerStatusUpdate, Players: players}
}

func NewWaitingForReady(ready, total, min int) WaitingForReady {
	return WaitingForReady{Type: MsgWaitingForReady, ReadyCount: ready, TotalPlayers: total, MinPlayers: min}
}

func NewGameStart(players []PlayerSnapshot) GameStart {
	return GameStart{Type: MsgGameStart, Players: players}
}

func NewRoundStart(players []PlayerSnapshot) RoundStart {
	return RoundStart{Type: MsgRoundStart, Players: players}
}

func NewCountdown(seconds int) Countdown {
	return Countdown{Type: MsgCountdown, Countdown: seconds}
}

func NewBlockPlayer(id int) BlockPlayer {
	return BlockPlayer{Type: MsgBlockPlayer, PlayerIDToBlock: id}
}

func NewPlayerEliminated(id int, players []PlayerSnapshot) PlayerEliminated {
	return PlayerEliminated{Type: MsgPlayerEliminated, EliminatedPlayerID: id, Players: players}
}

func NewTimeUpdate(remainingMs int) TimeUpdate {
	return TimeUpdate{Type: MsgTimeUpdate, RemainingTime: remainingMs}
}

func NewRoundWinner(id int, name string, players []PlayerSnapshot) RoundWinner {
	return RoundWinner{Type: MsgRoundWinner, WinnerID: id, WinnerName: name, Players: players}
}

func NewRoundNoWinner(players []PlayerSnapshot) RoundNoWinner {
	return RoundNoWinner{Type: MsgRoundNoWinner, Players: players}
}

func NewGameOver(id int, name string, players []PlayerSnapshot) GameOver {
	return GameOver{Type: MsgGameOver, WinnerID: id, WinnerName: name, Players: players}
}

func NewGameOverNoChampion(message string, players []PlayerSnapshot) GameOver {
	return GameOver{Type: MsgGameOver, Message: message, Players: players}
}

func NewPlayerLeft(id int, name string, players []PlayerSnapshot) PlayerLeft {
	return PlayerLeft{Type: MsgPlayerLeft, PlayerID: id, PlayerName: name, Players: players}
}

func NewGameReset(message string) GameReset {
	return GameReset{Type: MsgGameReset, Message: message}
}
