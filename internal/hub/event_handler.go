package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/events"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (h *Hub) runEventSubscriber(ctx context.Context) {
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)
	ch, err := h.bus.Subscribe(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Event subscriber could not subscribe", "error", err)
		return
	}

	for event := range ch {
		h.handleEvent(ctx, event)
	}
	slog.InfoContext(ctx, "Event subscriber stopped")
}

func (h *Hub) handleEvent(ctx context.Context, event events.Event) {
	ctx, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.type", event.Type),
	))
	defer span.End()

	switch event.Type {
	case events.TypeGameFinished:
		var payload events.GameFinishedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal game_finished payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal game_finished payload")
			return
		}
		h.handleGameFinished(ctx, &payload)

	case events.TypeSessionClosed:
		var payload events.SessionClosedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			slog.ErrorContext(ctx, "Could not unmarshal session_closed payload", "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Could not unmarshal session_closed payload")
			return
		}
		slog.InfoContext(ctx, "Session closed", "session.id", payload.SessionID,
			"scores.human", payload.Scores.Human, "scores.computer", payload.Scores.Computer)

	default:
		slog.DebugContext(ctx, "Ignoring unknown event", "event.type", event.Type)
	}
}

func (h *Hub) handleGameFinished(ctx context.Context, payload *events.GameFinishedPayload) {
	ctx, span := tracer.Start(ctx, "hub.handleGameFinished", trace.WithAttributes(
		attribute.String("session.id", payload.Result.SessionID),
		attribute.String("game.status", string(payload.Result.Status)),
	))
	defer span.End()

	if h.history == nil {
		return
	}
	if err := h.history.Record(ctx, payload.Result); err != nil {
		slog.ErrorContext(ctx, "Failed to record finished game", "session.id", payload.Result.SessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record finished game")
	}
}
