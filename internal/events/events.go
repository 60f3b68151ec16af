package events

import (
	"context"
	"encoding/json"
	"fmt"

	"ctchen222/tictactoe-minimax/internal/session"
)

//go:generate mockgen -destination=mocks/bus.go -package=mocks . Bus

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeGameFinished  = "game_finished"
	TypeSessionClosed = "session_closed"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// GameFinishedPayload is the payload for the "game_finished" event.
type GameFinishedPayload struct {
	Result session.Result `json:"result"`
}

// SessionClosedPayload is the payload for the "session_closed" event.
type SessionClosedPayload struct {
	SessionID string         `json:"session_id"`
	Scores    session.Scores `json:"scores"`
}

// Publisher publishes events to every subscriber.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is a Publisher that can also be consumed.
type Bus interface {
	Publisher
	// Subscribe delivers events until ctx is done. The returned channel is
	// closed when the subscription ends.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// New builds an event with a JSON payload.
func New(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: data}, nil
}
