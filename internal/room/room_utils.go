package room

import (
	"context"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/session"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (r *Room) removePlayer(p *player.Player) bool {
	for i, other := range r.players {
		if other == p {
			p.MarkDisconnected()
			_ = p.Conn.Close()
			r.players = append(r.players[:i], r.players[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.Status == player.StatusConnected {
			n++
		}
	}
	return n
}

func (r *Room) sendState(ctx context.Context, p *player.Player) {
	r.sendTo(ctx, p, newUpdate(r.session.Snapshot()))
}

func snapshotPtr(s session.Snapshot) *session.Snapshot { return &s }

func newUpdate(snap session.Snapshot) *proto.ServerToClientMessage {
	return &proto.ServerToClientMessage{Type: proto.TypeUpdate, State: &snap}
}

func newGameOver(res session.Result) *proto.ServerToClientMessage {
	return &proto.ServerToClientMessage{Type: proto.TypeGameOver, Result: &res}
}

func (r *Room) save(ctx context.Context, snap session.Snapshot) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Save(ctx, snap); err != nil {
		slog.ErrorContext(ctx, "failed to save session snapshot", "room.id", r.ID, "error", err)
	}
}

func (r *Room) publishFinished(ctx context.Context, res session.Result) {
	ctx, span := tracer.Start(ctx, "room.publishFinished", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("game.status", string(res.Status)),
		attribute.String("game.winner", string(res.Winner)),
	))
	defer span.End()

	if r.publisher == nil {
		return
	}
	event, err := events.New(events.TypeGameFinished, events.GameFinishedPayload{Result: res})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build game_finished event")
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish game_finished event", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to publish game_finished event")
	}
}

func (r *Room) publishClosed() {
	if r.publisher == nil {
		return
	}
	ctx := context.WithoutCancel(r.ctx)
	event, err := events.New(events.TypeSessionClosed, events.SessionClosedPayload{
		SessionID: r.ID,
		Scores:    r.session.Scores(),
	})
	if err != nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish session_closed event", "room.id", r.ID, "error", err)
	}
}
