package session

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
)

// SubmitHumanMove plays the current human's mark at index. Rejected moves
// wrap game.ErrInvalidMove and leave the session untouched; UIs may ignore
// them. In vs_computer mode the computer's reply is handed to the scheduler.
func (s *Session) SubmitHumanMove(ctx context.Context, index int) (Snapshot, error) {
	if s.status != StatusInProgress {
		return s.Snapshot(), game.ErrGameOver
	}
	if s.mode == VsComputer && s.turn != s.human {
		return s.Snapshot(), ErrNotYourTurn
	}

	if err := s.play(index); err != nil {
		return s.Snapshot(), err
	}

	if s.computerToMove() {
		s.scheduleComputerMove(ctx)
	}
	return s.Snapshot(), nil
}

// ComputerMove picks and plays the computer's move.
func (s *Session) ComputerMove(ctx context.Context) (Snapshot, error) {
	if !s.computerToMove() {
		return s.Snapshot(), ErrNotComputerTurn
	}

	idx := s.computer.ChooseMove(ctx, s.board, s.difficulty, s.scores)
	if err := s.play(idx); err != nil {
		return s.Snapshot(), fmt.Errorf("computer move %d: %w", idx, err)
	}
	return s.Snapshot(), nil
}

// Restart clears the board for a new game. Scores are kept.
func (s *Session) Restart(ctx context.Context) Snapshot {
	s.generation++
	s.board = game.Board{}
	s.turn = game.PlayerX
	s.status = StatusInProgress
	s.winner = game.None
	s.moves = s.moves[:0]
	s.touch()
	s.emit()

	if s.computerToMove() {
		s.scheduleComputerMove(ctx)
	}
	return s.Snapshot()
}

// ToggleMode switches between two_player and vs_computer, resets the scores
// and restarts.
func (s *Session) ToggleMode(ctx context.Context) Snapshot {
	if s.mode == VsComputer {
		s.mode = TwoPlayer
	} else {
		s.mode = VsComputer
	}
	s.scores = Scores{}
	return s.Restart(ctx)
}

// SetDifficulty changes how the computer plays from its next move on.
func (s *Session) SetDifficulty(d bot.Difficulty) (Snapshot, error) {
	if _, err := bot.ParseDifficulty(string(d)); err != nil || d == "" {
		return s.Snapshot(), ErrUnknownDifficulty
	}
	s.difficulty = d
	s.touch()
	s.emit()
	return s.Snapshot(), nil
}

// Resume schedules the computer's move if a restored session stopped while
// it was the computer's turn.
func (s *Session) Resume(ctx context.Context) {
	if s.computerToMove() {
		s.scheduleComputerMove(ctx)
	}
}

func (s *Session) computerToMove() bool {
	return s.mode == VsComputer && s.status == StatusInProgress && s.turn == s.computer.Mark()
}

// play applies the current turn's mark at index, settles the game and emits.
func (s *Session) play(index int) error {
	if err := s.board.Apply(index, s.turn); err != nil {
		return err
	}
	s.moves = append(s.moves, index)
	s.touch()

	finished := s.settle()
	if !finished {
		s.turn = game.Opponent(s.turn)
	}
	s.emit()
	if finished && s.listener != nil {
		s.listener.OnGameOver(s.result())
	}
	return nil
}

// settle moves the session to a terminal status if the board calls for it.
func (s *Session) settle() bool {
	if winner := game.EvaluateWinner(s.board); winner != game.None {
		s.status = StatusWin
		s.winner = winner
		s.updateScore(winner)
		return true
	}
	if game.IsFull(s.board) {
		s.status = StatusDraw
		return true
	}
	return false
}

// updateScore credits a win. Scores are only kept against the computer.
func (s *Session) updateScore(winner game.PlayerMark) {
	if s.mode != VsComputer {
		return
	}
	switch winner {
	case s.human:
		s.scores.Human++
	case s.computer.Mark():
		s.scores.Computer++
	}
}

// scheduleComputerMove hands the reply to the scheduler. A restart or mode
// toggle before it runs turns it into a no-op.
func (s *Session) scheduleComputerMove(ctx context.Context) {
	gen := s.generation
	ctx = context.WithoutCancel(ctx)
	s.scheduler.Schedule(func() {
		if s.generation != gen {
			return
		}
		if _, err := s.ComputerMove(ctx); err != nil {
			slog.WarnContext(ctx, "scheduled computer move skipped", "session.id", s.id, "error", err)
		}
	})
}

func (s *Session) result() Result {
	return Result{
		SessionID:  s.id,
		Mode:       s.mode,
		Difficulty: s.difficulty,
		Status:     s.status,
		Winner:     s.winner,
		Moves:      append([]int(nil), s.moves...),
		Scores:     s.scores,
		FinishedAt: s.updatedAt,
	}
}

func (s *Session) touch() { s.updatedAt = s.now() }

func (s *Session) emit() {
	if s.listener != nil {
		s.listener.OnChange(s.Snapshot())
	}
}
