package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/session"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// loadSession restores the session from its stored snapshot. A session that
// was never stored, or whose snapshot expired or no longer validates, starts
// fresh with the requested mode and difficulty.
func (h *Hub) loadSession(ctx context.Context, req *types.RegistrationRequest) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "hub.loadSession", trace.WithAttributes(
		attribute.String("session.id", req.SessionID),
	))
	defer span.End()

	snap, err := h.sessionRepo.FindByID(ctx, req.SessionID)
	switch {
	case err == nil:
		s, restoreErr := session.Restore(*snap)
		if restoreErr == nil {
			span.SetAttributes(attribute.Bool("session.restored", true))
			return s, nil
		}
		slog.WarnContext(ctx, "Stored snapshot rejected, starting over", "session.id", req.SessionID, "error", restoreErr)
		// Save never overwrites a snapshot with a later updated_at, and a
		// rejected one may carry any timestamp.
		if err := h.sessionRepo.Delete(ctx, req.SessionID); err != nil {
			slog.WarnContext(ctx, "Failed to delete rejected snapshot", "session.id", req.SessionID, "error", err)
		}
	case !errors.Is(err, repository.ErrSessionNotFound):
		return nil, fmt.Errorf("failed to load session %s: %w", req.SessionID, err)
	}

	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		mode = session.VsComputer
	}
	difficulty, err := bot.ParseDifficulty(req.Difficulty)
	if err != nil {
		difficulty = bot.Adaptive
	}

	s := session.New(req.SessionID, session.WithMode(mode), session.WithDifficulty(difficulty))
	if err := h.sessionRepo.Save(ctx, s.Snapshot()); err != nil {
		slog.WarnContext(ctx, "Failed to store new session", "session.id", req.SessionID, "error", err)
	}
	span.SetAttributes(attribute.Bool("session.restored", false))
	return s, nil
}
