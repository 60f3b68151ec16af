package hub

import (
	"context"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/room"
	"ctchen222/tictactoe-minimax/internal/session"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// HistoryRecorder stores finished games.
type HistoryRecorder interface {
	Record(ctx context.Context, res session.Result) error
}

// Hub manages all the rooms of this server, one per live session.
type Hub struct {
	rooms       map[string]*room.Room
	register    chan *types.RegistrationRequest
	roomClosed  chan *room.Room
	sessionRepo repository.SessionRepository
	bus         events.Bus
	history     HistoryRecorder
	roomOpts    room.Options
	ctx         context.Context
}

// NewHub creates a new hub. bus and history may be nil, in which case no
// events are consumed.
func NewHub(sessionRepo repository.SessionRepository, bus events.Bus, history HistoryRecorder, roomOpts room.Options) *Hub {
	return &Hub{
		rooms:       make(map[string]*room.Room),
		register:    make(chan *types.RegistrationRequest),
		roomClosed:  make(chan *room.Room),
		sessionRepo: sessionRepo,
		bus:         bus,
		history:     history,
		roomOpts:    roomOpts,
		ctx:         context.Background(),
	}
}

// Run starts the hub. It returns when ctx is done; rooms stop with it.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	if h.bus != nil {
		go h.runEventSubscriber(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Hub stopping", "rooms.count", len(h.rooms))
			return

		case req := <-h.register:
			h.handleRegistration(req)

		case r := <-h.roomClosed:
			if h.rooms[r.ID] == r {
				delete(h.rooms, r.ID)
				slog.InfoContext(ctx, "Room removed from hub", "room.id", r.ID)
			}
		}
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}
