package bot

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"ctchen222/tictactoe-minimax/internal/game"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Difficulty selects how the computer picks its moves.
type Difficulty string

const (
	Easy     Difficulty = "easy"
	Medium   Difficulty = "medium"
	Hard     Difficulty = "hard"
	Adaptive Difficulty = "adaptive"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

var (
	tracer = otel.Tracer("bot")
	meter  = otel.Meter("bot")

	searchDuration, _ = meter.Float64Histogram("bot.search.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Time spent choosing a computer move"),
	)
	movesChosen, _ = meter.Int64Counter("bot.moves",
		metric.WithDescription("Computer moves chosen"),
	)
)

// ParseDifficulty validates s. An empty string selects Adaptive.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case "":
		return Adaptive, nil
	case Easy, Medium, Hard, Adaptive:
		return d, nil
	}
	return "", ErrUnknownDifficulty
}

// Computer picks moves for the computer side of a session. It is not safe for
// concurrent use; a session owns exactly one.
type Computer struct {
	mark game.PlayerMark
	rng  *rand.Rand
}

// NewComputer creates a computer playing mark. A nil rng gets a randomly
// seeded source.
func NewComputer(mark game.PlayerMark, rng *rand.Rand) *Computer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Computer{mark: mark, rng: rng}
}

// Mark returns the mark the computer plays.
func (c *Computer) Mark() game.PlayerMark {
	return c.mark
}

// ChooseMove determines the computer's next move based on difficulty and the
// current scores. Returns -1 when the board has no free cell.
func (c *Computer) ChooseMove(ctx context.Context, board game.Board, difficulty Difficulty, scores Scores) int {
	ctx, span := tracer.Start(ctx, "bot.ChooseMove", trace.WithAttributes(
		attribute.String("bot.difficulty", string(difficulty)),
		attribute.Int("scores.human", scores.Human),
		attribute.Int("scores.computer", scores.Computer),
	))
	defer span.End()

	start := time.Now()
	var idx int
	switch difficulty {
	case Easy:
		idx = easyMove(board, c.rng)
	case Medium:
		idx = mediumMove(board, c.mark, c.rng)
	case Hard:
		idx = hardMove(board, c.mark)
	default:
		idx = adaptiveMove(board, c.mark, scores, c.rng)
	}

	attrs := metric.WithAttributes(attribute.String("bot.difficulty", string(difficulty)))
	searchDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	movesChosen.Add(ctx, 1, attrs)
	span.SetAttributes(attribute.Int("move.cell", idx))

	return idx
}
