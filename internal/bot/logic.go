package bot

import (
	"math"
	"math/rand/v2"

	"ctchen222/tictactoe-minimax/internal/game"
)

// Scores is the running tally between the human and the computer.
type Scores struct {
	Human    int `json:"human"`
	Computer int `json:"computer"`
}

// ComputerAhead reports whether the computer leads strictly.
func (s Scores) ComputerAhead() bool {
	return s.Computer > s.Human
}

// Minimax scores board for the computer. Wins are worth 10-depth, losses
// depth-10 and draws 0. The board is used as scratch space and is restored
// before returning.
func Minimax(board *game.Board, depth int, maximizing bool, computer, human game.PlayerMark) int {
	switch game.EvaluateWinner(*board) {
	case computer:
		return 10 - depth
	case human:
		return depth - 10
	}
	if game.IsFull(*board) {
		return 0
	}

	if maximizing {
		best := math.MinInt
		for i, cell := range board {
			if cell != game.None {
				continue
			}
			board[i] = computer
			best = max(best, Minimax(board, depth+1, false, computer, human))
			board[i] = game.None
		}
		return best
	}

	best := math.MaxInt
	for i, cell := range board {
		if cell != game.None {
			continue
		}
		board[i] = human
		best = min(best, Minimax(board, depth+1, true, computer, human))
		board[i] = game.None
	}
	return best
}

// BestMove runs a full minimax over every empty cell. The lowest index among
// equally scored cells wins. Returns -1 when no cell is free.
func BestMove(board game.Board, computer game.PlayerMark) int {
	human := game.Opponent(computer)
	bestMove, bestVal := -1, math.MinInt
	for i, cell := range board {
		if cell != game.None {
			continue
		}
		board[i] = computer
		val := Minimax(&board, 0, false, computer, human)
		board[i] = game.None

		if val > bestVal {
			bestMove, bestVal = i, val
		}
	}
	return bestMove
}

// RandomMove picks uniformly among empty cells. Returns -1 on a full board.
func RandomMove(board game.Board, rng *rand.Rand) int {
	cells := game.EmptyCells(board)
	if len(cells) == 0 {
		return -1
	}
	return cells[rng.IntN(len(cells))]
}

// WinningMove finds a line where mark has two cells and the third is empty.
func WinningMove(board game.Board, mark game.PlayerMark) (int, bool) {
	for _, line := range game.WinningLines {
		own, free := 0, -1
		for _, idx := range line {
			switch board[idx] {
			case mark:
				own++
			case game.None:
				free = idx
			}
		}
		if own == 2 && free != -1 {
			return free, true
		}
	}
	return -1, false
}

// easyMove makes a completely random move.
func easyMove(board game.Board, rng *rand.Rand) int {
	return RandomMove(board, rng)
}

// mediumMove will win if it can, block if it must, otherwise move randomly.
func mediumMove(board game.Board, computer game.PlayerMark, rng *rand.Rand) int {
	if idx, ok := WinningMove(board, computer); ok {
		return idx
	}
	if idx, ok := WinningMove(board, game.Opponent(computer)); ok {
		return idx
	}
	return RandomMove(board, rng)
}

// hardMove always plays the minimax choice.
func hardMove(board game.Board, computer game.PlayerMark) int {
	return BestMove(board, computer)
}

// adaptiveMove searches while the human is level or ahead and plays randomly
// once the computer leads.
func adaptiveMove(board game.Board, computer game.PlayerMark, scores Scores, rng *rand.Rand) int {
	if scores.ComputerAhead() {
		return RandomMove(board, rng)
	}
	return BestMove(board, computer)
}
