package room

import (
	"context"
	"log/slog"
	"time"

	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

const (
	defaultHeartbeatInterval = 10 * time.Second
	defaultReconnectGrace    = 60 * time.Second
	defaultComputerDelay     = 500 * time.Millisecond
)

var tracer = otel.Tracer("room")

// Options tunes the timing of a room.
type Options struct {
	ComputerDelay     time.Duration
	ReconnectGrace    time.Duration
	HeartbeatInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ComputerDelay < 0 {
		o.ComputerDelay = 0
	}
	if o.ReconnectGrace <= 0 {
		o.ReconnectGrace = defaultReconnectGrace
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = defaultHeartbeatInterval
	}
	return o
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		ComputerDelay:     defaultComputerDelay,
		ReconnectGrace:    defaultReconnectGrace,
		HeartbeatInterval: defaultHeartbeatInterval,
	}
}

// Room owns one session and every connection attached to it. All session
// access happens on the goroutine running Run.
type Room struct {
	ID        string
	session   *session.Session
	repo      repository.SessionRepository
	publisher events.Publisher
	opts      Options

	players       []*player.Player
	incomingMoves chan *types.PlayerMove
	register      chan *player.Player
	unregister    chan *player.Player
	scheduled     chan func()
	quit          chan struct{}
	done          chan struct{}

	ctx     context.Context
	onClose func(roomID string)
}

// NewRoom wraps s in a room. The room becomes the session's listener and
// scheduler.
func NewRoom(s *session.Session, repo repository.SessionRepository, publisher events.Publisher, opts Options) *Room {
	r := &Room{
		ID:            s.ID(),
		session:       s,
		repo:          repo,
		publisher:     publisher,
		opts:          opts.withDefaults(),
		players:       make([]*player.Player, 0, 2),
		incomingMoves: make(chan *types.PlayerMove, 16),
		register:      make(chan *player.Player),
		unregister:    make(chan *player.Player),
		scheduled:     make(chan func(), 1),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
		ctx:           context.Background(),
	}
	s.SetListener(r)
	s.SetScheduler(r)
	return r
}

// OnClose sets a callback invoked once after the loop has stopped.
func (r *Room) OnClose(fn func(roomID string)) {
	r.onClose = fn
}

// Join attaches a player. It reports false when the room has already closed.
func (r *Room) Join(p *player.Player) bool {
	select {
	case r.register <- p:
		return true
	case <-r.done:
		return false
	}
}

// Leave detaches a player.
func (r *Room) Leave(p *player.Player) {
	select {
	case r.unregister <- p:
	case <-r.done:
	}
}

// Deliver queues a raw client message for the loop.
func (r *Room) Deliver(p *player.Player, msg []byte) {
	select {
	case r.incomingMoves <- &types.PlayerMove{Player: p, Message: msg}:
	case <-r.done:
	}
}

// Close stops the room.
func (r *Room) Close() {
	select {
	case <-r.quit:
	default:
		close(r.quit)
	}
}

// Done is closed when the loop has stopped.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Schedule runs fn on the loop after the computer delay.
func (r *Room) Schedule(fn func()) {
	time.AfterFunc(r.opts.ComputerDelay, func() {
		select {
		case r.scheduled <- fn:
		case <-r.done:
		}
	})
}

// Run is the main loop for the room. It returns when ctx is done, Close is
// called, or the last player has been gone for the reconnection grace period.
func (r *Room) Run(ctx context.Context) {
	r.ctx = ctx
	pingTicker := time.NewTicker(r.opts.HeartbeatInterval)
	graceTimer := time.NewTimer(r.opts.ReconnectGrace)

	defer func() {
		pingTicker.Stop()
		graceTimer.Stop()
		for _, p := range r.players {
			_ = p.Conn.Close()
		}
		close(r.done)
		r.publishClosed()
		if r.onClose != nil {
			r.onClose(r.ID)
		}
	}()

	// a computer move that was due when the session was persisted
	r.session.Resume(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Room run goroutine stopping.", "room.id", r.ID)
			return

		case <-r.quit:
			slog.InfoContext(ctx, "Room closed.", "room.id", r.ID)
			return

		case p := <-r.register:
			graceTimer.Stop()
			r.players = append(r.players, p)
			slog.InfoContext(ctx, "Player joined room", "player.id", p.ID, "room.id", r.ID)
			r.sendState(ctx, p)

		case p := <-r.unregister:
			if r.removePlayer(p) && r.connectedCount() == 0 {
				slog.InfoContext(ctx, "Last player left, waiting for reconnection", "room.id", r.ID, "grace", r.opts.ReconnectGrace)
				graceTimer.Reset(r.opts.ReconnectGrace)
			}

		case move := <-r.incomingMoves:
			r.HandleMessage(ctx, move.Player, move.Message)

		case fn := <-r.scheduled:
			fn()

		case <-pingTicker.C:
			for _, p := range r.players {
				if p.Status == player.StatusConnected {
					if err := p.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						slog.WarnContext(ctx, "Failed to send ping to player, assuming disconnect", "player.id", p.ID, "error", err)
					}
				}
			}

		case <-graceTimer.C:
			if r.connectedCount() == 0 {
				slog.InfoContext(ctx, "No player reconnected within grace period. Closing room.", "room.id", r.ID)
				return
			}
		}
	}
}

// OnChange broadcasts and persists every new snapshot.
func (r *Room) OnChange(snap session.Snapshot) {
	r.Broadcast(r.ctx, newUpdate(snap))
	r.save(r.ctx, snap)
}

// OnGameOver announces a finished game.
func (r *Room) OnGameOver(res session.Result) {
	r.Broadcast(r.ctx, newGameOver(res))
	r.publishFinished(r.ctx, res)
}
