package comm

import (
	"encoding/json"
	"strings"
)

const (
	// socket service -> game service
	CommandsTopic = "socket.service"
	// game service -> socket service, replies addressed to one socket
	RepliesTopic = "game.service"
	// game service -> socket service, one subject per game
	UpdatesTopic = "game.updates"
)

// UpdatesSubject is the subject carrying the updates of one game.
func UpdatesSubject(gameCode string) string {
	return UpdatesTopic + "." + gameCode
}

// GameCodeFromSubject returns the game code of an updates subject.
func GameCodeFromSubject(subject string) (string, bool) {
	code, ok := strings.CutPrefix(subject, UpdatesTopic+".")
	return code, ok && code != ""
}

// Message types a web client may send.
const (
	TypeCreate        = "create-game"
	TypeJoin          = "join-game"
	TypeKick          = "kick-player"
	TypeStart         = "start-game"
	TypePlayTurn      = "play-turn"
	TypeSkip          = "skip-turn"
	TypeInvest        = "invest"
	TypeReset         = "reset-game"
	TypeDelete        = "delete-game"
	TypeSnapshot      = "get-game"
	TypeFindPlayer    = "find-player"
	TypeAdvicesViewed = "advices-viewed"

	// TypeUpdate wraps a game update on the updates subjects.
	TypeUpdate = "update"
)

var commands = map[string]bool{
	TypeCreate:        true,
	TypeJoin:          true,
	TypeKick:          true,
	TypeStart:         true,
	TypePlayTurn:      true,
	TypeSkip:          true,
	TypeInvest:        true,
	TypeReset:         true,
	TypeDelete:        true,
	TypeSnapshot:      true,
	TypeFindPlayer:    true,
	TypeAdvicesViewed: true,
}

func IsCommand(t string) bool {
	return commands[t]
}

// ResponseType is the type of the reply to a command.
func ResponseType(t string) string {
	return t + "-response"
}

// CommandOf returns the command a reply type answers.
func CommandOf(responseType string) (string, bool) {
	t, ok := strings.CutSuffix(responseType, "-response")
	return t, ok && IsCommand(t)
}

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "join-game", "play-turn"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
	GameCode string          `json:"gamecode,omitempty"`
}

// Command is the data of every client command. Only the fields the type
// needs are read.
type Command struct {
	GameCode  string  `json:"game_code"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	PlayerId  int64   `json:"player_id"`
	LandId    int64   `json:"land_id"`
	Ownership float64 `json:"ownership"`
}

// Reply answers a command. Data is the snapshot of the game for commands
// that bind a socket to a game.
type Reply struct {
	Status   bool   `json:"status"`
	Code     int    `json:"code"`
	Error    string `json:"error,omitempty"`
	GameCode string `json:"game_code,omitempty"`
	PlayerId int64  `json:"player_id,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Binds reports whether a successful reply of this type subscribes the
// socket to the game's updates.
func Binds(command string) bool {
	switch command {
	case TypeCreate, TypeJoin, TypeSnapshot, TypeFindPlayer:
		return true
	}
	return false
}
