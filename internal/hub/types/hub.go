package types

import (
	"context"

	"ctchen222/tictactoe-minimax/internal/player"
)

// RegistrationRequest asks the hub to attach a connection to a session.
type RegistrationRequest struct {
	Player     *player.Player
	SessionID  string
	Mode       string // used only when no snapshot of the session exists
	Difficulty string
	Ctx        context.Context
}

// PlayerMove is a raw message read from a player's connection.
type PlayerMove struct {
	Player  *player.Player
	Message []byte
}
