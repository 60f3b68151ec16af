package game

import (
	"errors"
	"fmt"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board boundaries
	BorderMin = 0
	BorderMax = 8

	// CellCount is the number of cells on the board.
	CellCount = 9
)

var (
	// ErrInvalidMove is the root of every rejected move.
	ErrInvalidMove  = errors.New("invalid move")
	ErrOutOfRange   = fmt.Errorf("%w: cell index out of range", ErrInvalidMove)
	ErrCellOccupied = fmt.Errorf("%w: cell already occupied", ErrInvalidMove)
	ErrGameOver     = fmt.Errorf("%w: game already finished", ErrInvalidMove)
	ErrInvalidMark  = fmt.Errorf("%w: mark must be X or O", ErrInvalidMove)
)

// WinningLines lists every index triple that wins the game, in scan order:
// rows top to bottom, columns left to right, diagonal, anti-diagonal.
var WinningLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Board is the 3x3 grid stored row-major.
type Board [CellCount]PlayerMark

// Apply places mark on the cell at index.
func (b *Board) Apply(index int, mark PlayerMark) error {
	if mark != PlayerX && mark != PlayerO {
		return ErrInvalidMark
	}
	if index < BorderMin || index > BorderMax {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}
	if EvaluateWinner(*b) != None || IsFull(*b) {
		return ErrGameOver
	}
	if b[index] != None {
		return fmt.Errorf("%w: %d", ErrCellOccupied, index)
	}

	b[index] = mark
	return nil
}

// Clear empties the cell at index. Out-of-range indexes are ignored.
func (b *Board) Clear(index int) {
	if index < BorderMin || index > BorderMax {
		return
	}
	b[index] = None
}

// EvaluateWinner returns the mark of the first complete line, or None.
func EvaluateWinner(b Board) PlayerMark {
	for _, line := range WinningLines {
		first := b[line[0]]
		if first != None && first == b[line[1]] && first == b[line[2]] {
			return first
		}
	}
	return None
}

// IsFull reports whether no cell is empty.
func IsFull(b Board) bool {
	for _, cell := range b {
		if cell == None {
			return false
		}
	}
	return true
}

// IsDraw reports whether the board is full without a winner.
func IsDraw(b Board) bool {
	return IsFull(b) && EvaluateWinner(b) == None
}
