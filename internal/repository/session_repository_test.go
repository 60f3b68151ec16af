package repository

import (
	"context"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return ctx, rdb
}

func sampleSnapshot(id string, at time.Time) session.Snapshot {
	return session.Snapshot{
		SessionID:      id,
		Board:          game.Board{game.PlayerX, game.None, game.None, game.None, game.PlayerO},
		Next:           game.PlayerX,
		Status:         session.StatusInProgress,
		Mode:           session.VsComputer,
		Difficulty:     bot.Adaptive,
		HumanMark:      game.PlayerX,
		Scores:         session.Scores{Human: 1},
		ShowScoreboard: true,
		Message:        "Player X's turn",
		Moves:          []int{0, 4},
		UpdatedAt:      at,
	}
}

func TestSessionRepository(t *testing.T) {
	ctx, rdb := newRedis(t)
	repo := NewSessionRepository(rdb, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Save then FindByID returns the snapshot", func(t *testing.T) {
		// Given: a stored snapshot
		snap := sampleSnapshot("s-1", now)
		require.NoError(t, repo.Save(ctx, snap))

		// When: it is loaded back
		got, err := repo.FindByID(ctx, "s-1")

		// Then: it matches and carries a TTL
		require.NoError(t, err)
		assert.Equal(t, snap.Board, got.Board)
		assert.Equal(t, snap.Moves, got.Moves)
		assert.Equal(t, snap.Scores, got.Scores)
		assert.True(t, snap.UpdatedAt.Equal(got.UpdatedAt))

		ttl, err := rdb.TTL(ctx, sessionKey("s-1")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("Older snapshots do not overwrite newer ones", func(t *testing.T) {
		newer := sampleSnapshot("s-2", now.Add(time.Second))
		newer.Moves = []int{0, 4, 8, 2}
		require.NoError(t, repo.Save(ctx, newer))

		require.NoError(t, repo.Save(ctx, sampleSnapshot("s-2", now)))

		got, err := repo.FindByID(ctx, "s-2")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 4, 8, 2}, got.Moves)
	})

	t.Run("Unknown session", func(t *testing.T) {
		got, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, sampleSnapshot("s-3", now)))
		require.NoError(t, repo.Delete(ctx, "s-3"))

		_, err := repo.FindByID(ctx, "s-3")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
