package game

// Opponent returns the other player's mark. None has no opponent.
func Opponent(mark PlayerMark) PlayerMark {
	switch mark {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// EmptyCells returns the indexes of empty cells in ascending order.
func EmptyCells(b Board) []int {
	cells := make([]int, 0, CellCount)
	for i, cell := range b {
		if cell == None {
			cells = append(cells, i)
		}
	}
	return cells
}

// ParseMark converts a persisted string back into a mark.
func ParseMark(s string) (PlayerMark, bool) {
	switch PlayerMark(s) {
	case None, PlayerX, PlayerO:
		return PlayerMark(s), true
	}
	return None, false
}
