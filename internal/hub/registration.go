package hub

import (
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/room"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleRegistration attaches the player to the session's room, starting the
// room first when this server has none.
func (h *Hub) handleRegistration(req *types.RegistrationRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = h.ctx
	}
	ctx, span := tracer.Start(ctx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("player.id", req.Player.ID),
		attribute.String("session.id", req.SessionID),
	))
	defer span.End()

	if existing, ok := h.rooms[req.SessionID]; ok {
		if existing.Join(req.Player) {
			go existing.ReadPump(req.Player)
			slog.InfoContext(ctx, "Player added to existing room", "player.id", req.Player.ID, "room.id", req.SessionID)
			return
		}
		// closed but not yet removed
		delete(h.rooms, req.SessionID)
	}

	s, err := h.loadSession(ctx, req)
	if err != nil {
		slog.ErrorContext(ctx, "Could not load session", "session.id", req.SessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not load session")
		_ = req.Player.Conn.Close()
		return
	}

	newRoom := room.NewRoom(s, h.sessionRepo, h.bus, h.roomOpts)
	newRoom.OnClose(func(string) {
		select {
		case h.roomClosed <- newRoom:
		case <-h.ctx.Done():
		}
	})
	h.rooms[req.SessionID] = newRoom
	go newRoom.Run(h.ctx)

	if !newRoom.Join(req.Player) {
		slog.WarnContext(ctx, "Room closed before player could join", "room.id", req.SessionID)
		_ = req.Player.Conn.Close()
		return
	}
	go newRoom.ReadPump(req.Player)
	slog.InfoContext(ctx, "Room started for session", "player.id", req.Player.ID, "room.id", req.SessionID)
}
