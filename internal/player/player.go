package player

import "time"

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// PlayerStatus is the connection state of a player.
type PlayerStatus string

const (
	StatusConnected    PlayerStatus = "connected"
	StatusDisconnected PlayerStatus = "disconnected"
)

// Player is one browser connection attached to a session. Several tabs of the
// same session show up as several players.
type Player struct {
	ID        string
	SessionID string
	Conn      Connection
	Status    PlayerStatus
	LastSeen  time.Time
}

// NewPlayer creates a connected player.
func NewPlayer(id, sessionID string, conn Connection) *Player {
	return &Player{
		ID:        id,
		SessionID: sessionID,
		Conn:      conn,
		Status:    StatusConnected,
		LastSeen:  time.Now(),
	}
}

// MarkDisconnected records that the connection went away.
func (p *Player) MarkDisconnected() {
	p.Status = StatusDisconnected
	p.LastSeen = time.Now()
}
