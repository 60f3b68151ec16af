package proto

import "ctchen222/tictactoe-minimax/internal/session"

// Client message types.
const (
	TypeMove       = "move"
	TypeRestart    = "restart"
	TypeToggleMode = "toggle_mode"
	TypeDifficulty = "difficulty"
	TypeState      = "state"
)

// Server message types.
const (
	TypeUpdate   = "update"
	TypeRejected = "rejected"
	TypeGameOver = "game_over"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type       string `json:"type" validate:"required,oneof=move restart toggle_mode difficulty state"`
	Cell       *int   `json:"cell,omitempty" validate:"required_if=Type move,omitempty,cell"`
	Difficulty string `json:"difficulty,omitempty" validate:"required_if=Type difficulty,omitempty,difficulty"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type   string            `json:"type" validate:"required"`
	Reason string            `json:"reason,omitempty"`
	State  *session.Snapshot `json:"state,omitempty"`
	Result *session.Result   `json:"result,omitempty"`
}
