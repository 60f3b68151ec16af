package session

import (
	"fmt"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
)

// Restore rebuilds a session from a persisted snapshot. The board is
// re-evaluated, so a snapshot that no legal game could reach, or whose status,
// turn or move log disagrees with its board, is rejected with
// ErrCorruptSnapshot.
func Restore(snap Snapshot, opts ...Option) (*Session, error) {
	if snap.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrCorruptSnapshot)
	}
	mode, err := ParseMode(string(snap.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	difficulty, err := bot.ParseDifficulty(string(snap.Difficulty))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	var xs, os int
	for i, cell := range snap.Board {
		if _, ok := game.ParseMark(string(cell)); !ok {
			return nil, fmt.Errorf("%w: cell %d holds %q", ErrCorruptSnapshot, i, cell)
		}
		switch cell {
		case game.PlayerX:
			xs++
		case game.PlayerO:
			os++
		}
	}
	if xs != os && xs != os+1 {
		return nil, fmt.Errorf("%w: %d X marks against %d O marks", ErrCorruptSnapshot, xs, os)
	}
	if len(snap.Moves) != xs+os {
		return nil, fmt.Errorf("%w: move log has %d entries for %d marks", ErrCorruptSnapshot, len(snap.Moves), xs+os)
	}
	var seen [game.CellCount]bool
	for i, idx := range snap.Moves {
		if idx < game.BorderMin || idx > game.BorderMax || snap.Board[idx] == game.None {
			return nil, fmt.Errorf("%w: move log references cell %d", ErrCorruptSnapshot, idx)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: move log repeats cell %d", ErrCorruptSnapshot, idx)
		}
		seen[idx] = true
		// X opens, so even entries are X and odd entries are O
		if want := moverAt(i); snap.Board[idx] != want {
			return nil, fmt.Errorf("%w: move %d on cell %d should be %q", ErrCorruptSnapshot, i, idx, want)
		}
	}

	if owners := lineOwners(snap.Board); len(owners) > 1 {
		return nil, fmt.Errorf("%w: both marks complete a line", ErrCorruptSnapshot)
	}

	status, winner := StatusInProgress, game.EvaluateWinner(snap.Board)
	switch {
	case winner != game.None:
		status = StatusWin
	case game.IsFull(snap.Board):
		status = StatusDraw
	}
	if status != snap.Status || winner != snap.Winner {
		return nil, fmt.Errorf("%w: status %q does not match board", ErrCorruptSnapshot, snap.Status)
	}
	// the winner made the last move
	if (winner == game.PlayerX && xs != os+1) || (winner == game.PlayerO && xs != os) {
		return nil, fmt.Errorf("%w: %q cannot win with %d X marks against %d O marks", ErrCorruptSnapshot, winner, xs, os)
	}

	turn := game.PlayerX
	if xs > os {
		turn = game.PlayerO
	}
	if status == StatusInProgress && snap.Next != turn {
		return nil, fmt.Errorf("%w: next turn %q, board says %q", ErrCorruptSnapshot, snap.Next, turn)
	}
	if status != StatusInProgress {
		// the mover of the last mark stays on turn once the game is over
		turn = game.Opponent(turn)
	}

	human := snap.HumanMark
	if human != game.PlayerO {
		human = game.PlayerX
	}

	opts = append([]Option{WithMode(mode), WithDifficulty(difficulty), WithHumanMark(human)}, opts...)
	s := New(snap.SessionID, opts...)
	s.board = snap.Board
	s.turn = turn
	s.status = status
	s.winner = winner
	s.scores = snap.Scores
	s.moves = append(s.moves, snap.Moves...)
	if !snap.UpdatedAt.IsZero() {
		s.updatedAt = snap.UpdatedAt
	}
	return s, nil
}

func moverAt(i int) game.PlayerMark {
	if i%2 == 0 {
		return game.PlayerX
	}
	return game.PlayerO
}

// lineOwners returns the distinct marks that complete at least one line.
func lineOwners(b game.Board) map[game.PlayerMark]struct{} {
	owners := make(map[game.PlayerMark]struct{}, 2)
	for _, line := range game.WinningLines {
		a := b[line[0]]
		if a != game.None && a == b[line[1]] && a == b[line[2]] {
			owners[a] = struct{}{}
		}
	}
	return owners
}
