package repository

import (
	"context"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/db"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T) (context.Context, HistoryRepository) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.InitializeSchema(ctx, conn))
	return ctx, NewHistoryRepository(conn)
}

func TestHistoryRepository(t *testing.T) {
	ctx, repo := newHistory(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Given: two games of one session and one of another
	require.NoError(t, repo.Record(ctx, session.Result{
		SessionID:  "s-1",
		Mode:       session.VsComputer,
		Difficulty: bot.Adaptive,
		Status:     session.StatusWin,
		Winner:     game.PlayerX,
		Moves:      []int{0, 3, 1, 4, 2},
		Scores:     session.Scores{Human: 1},
		FinishedAt: base,
	}))
	require.NoError(t, repo.Record(ctx, session.Result{
		SessionID:  "s-1",
		Mode:       session.VsComputer,
		Difficulty: bot.Adaptive,
		Status:     session.StatusDraw,
		Moves:      []int{4, 0, 8, 2, 1, 7, 6, 3, 5},
		Scores:     session.Scores{Human: 1},
		FinishedAt: base.Add(time.Minute),
	}))
	require.NoError(t, repo.Record(ctx, session.Result{
		SessionID:  "s-2",
		Mode:       session.TwoPlayer,
		Difficulty: bot.Adaptive,
		Status:     session.StatusWin,
		Winner:     game.PlayerO,
		Moves:      []int{0, 4, 1, 2, 3, 6},
		FinishedAt: base,
	}))

	t.Run("Lists newest first", func(t *testing.T) {
		records, err := repo.ListBySession(ctx, "s-1", 0)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "draw", records[0].Status)
		assert.Equal(t, []int{4, 0, 8, 2, 1, 7, 6, 3, 5}, records[0].MoveList)
		assert.Equal(t, "win", records[1].Status)
		assert.Equal(t, "X", records[1].Winner)
		assert.Equal(t, 1, records[1].HumanScore)
		assert.Equal(t, base.UnixMilli(), records[1].FinishedAt)
	})

	t.Run("Honours the limit", func(t *testing.T) {
		records, err := repo.ListBySession(ctx, "s-1", 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "draw", records[0].Status)
	})

	t.Run("Unknown session is empty", func(t *testing.T) {
		records, err := repo.ListBySession(ctx, "nope", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
