package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/validator"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HandleMessage handles a message from a player. It acts as a dispatcher and
// must only be called from the room loop.
func (r *Room) HandleMessage(ctx context.Context, p *player.Player, rawMessage []byte) {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	if p.Status == player.StatusDisconnected {
		slog.WarnContext(ctx, "ignoring message from disconnected player", "player.id", p.ID)
		span.SetStatus(codes.Error, "Message from disconnected player")
		return
	}

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.reject(ctx, p, "malformed message")
		return
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "player.id", p.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.reject(ctx, p, "invalid message")
		return
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	switch message.Type {
	case proto.TypeMove:
		r.handleMove(ctx, p, *message.Cell)
	case proto.TypeRestart:
		r.session.Restart(ctx)
	case proto.TypeToggleMode:
		r.session.ToggleMode(ctx)
	case proto.TypeDifficulty:
		r.handleDifficulty(ctx, p, message.Difficulty)
	case proto.TypeState:
		r.sendState(ctx, p)
	}
}

// handleMove submits a human move. Rejected moves only concern the sender.
func (r *Room) handleMove(ctx context.Context, p *player.Player, cell int) {
	ctx, moveSpan := tracer.Start(ctx, "room.handleMove", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("room.id", r.ID),
		attribute.Int("move.cell", cell),
	))
	defer moveSpan.End()

	if _, err := r.session.SubmitHumanMove(ctx, cell); err != nil {
		moveSpan.SetAttributes(attribute.Bool("move.valid", false))
		if errors.Is(err, game.ErrInvalidMove) {
			slog.DebugContext(ctx, "move rejected", "player.id", p.ID, "move.cell", cell, "reason", err)
			r.reject(ctx, p, err.Error())
			return
		}
		slog.ErrorContext(ctx, "move failed", "player.id", p.ID, "error", err)
		moveSpan.RecordError(err)
		moveSpan.SetStatus(codes.Error, "Move failed")
		return
	}
	moveSpan.SetAttributes(attribute.Bool("move.valid", true))
}

func (r *Room) handleDifficulty(ctx context.Context, p *player.Player, raw string) {
	if _, err := r.session.SetDifficulty(bot.Difficulty(raw)); err != nil {
		slog.WarnContext(ctx, "difficulty rejected", "player.id", p.ID, "bot.difficulty", raw)
		r.reject(ctx, p, err.Error())
	}
}

func (r *Room) reject(ctx context.Context, p *player.Player, reason string) {
	r.sendTo(ctx, p, &proto.ServerToClientMessage{
		Type:   proto.TypeRejected,
		Reason: reason,
		State:  snapshotPtr(r.session.Snapshot()),
	})
}
