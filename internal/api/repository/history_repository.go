package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/jmoiron/sqlx"
)

// DefaultHistoryLimit applies when a listing asks for no limit.
const DefaultHistoryLimit = 20

// HistoryRepository stores finished games.
type HistoryRepository interface {
	Record(ctx context.Context, res session.Result) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.GameRecord, error)
}

type sqliteHistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new SQLite-based HistoryRepository.
func NewHistoryRepository(db *sqlx.DB) HistoryRepository {
	return &sqliteHistoryRepository{db: db}
}

// Record inserts a finished game.
func (r *sqliteHistoryRepository) Record(ctx context.Context, res session.Result) error {
	moves, err := json.Marshal(res.Moves)
	if err != nil {
		return fmt.Errorf("failed to marshal moves: %w", err)
	}

	record := models.GameRecord{
		SessionID:     res.SessionID,
		Mode:          string(res.Mode),
		Difficulty:    string(res.Difficulty),
		Status:        string(res.Status),
		Winner:        string(res.Winner),
		Moves:         string(moves),
		HumanScore:    res.Scores.Human,
		ComputerScore: res.Scores.Computer,
		FinishedAt:    res.FinishedAt.UnixMilli(),
	}

	query := `INSERT INTO games (session_id, mode, difficulty, status, winner, moves, human_score, computer_score, finished_at)
		VALUES (:session_id, :mode, :difficulty, :status, :winner, :moves, :human_score, :computer_score, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}
	return nil
}

// ListBySession returns the finished games of a session, newest first.
func (r *sqliteHistoryRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	records := []models.GameRecord{}
	query := `SELECT id, session_id, mode, difficulty, status, winner, moves, human_score, computer_score, finished_at
		FROM games WHERE session_id = ? ORDER BY finished_at DESC, id DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &records, query, sessionID, limit); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	for i := range records {
		if err := json.Unmarshal([]byte(records[i].Moves), &records[i].MoveList); err != nil {
			return nil, fmt.Errorf("failed to unmarshal moves of game %d: %w", records[i].ID, err)
		}
	}
	return records, nil
}
