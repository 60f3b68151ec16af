package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/game"
)

// Mode selects who plays the O side.
type Mode string

// Status is the lifecycle state of the current game.
type Status string

const (
	TwoPlayer  Mode = "two_player"
	VsComputer Mode = "vs_computer"

	StatusInProgress Status = "in_progress"
	StatusWin        Status = "win"
	StatusDraw       Status = "draw"
)

// Scores is the running human/computer tally of a vs_computer session.
type Scores = bot.Scores

var (
	ErrNotYourTurn       = fmt.Errorf("%w: not your turn", game.ErrInvalidMove)
	ErrNotComputerTurn   = errors.New("not the computer's turn")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrUnknownDifficulty = bot.ErrUnknownDifficulty
	ErrCorruptSnapshot   = errors.New("corrupt snapshot")
)

// ParseMode validates s. An empty string selects VsComputer.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return VsComputer, nil
	case TwoPlayer, VsComputer:
		return m, nil
	}
	return "", ErrUnknownMode
}

// Scheduler runs the computer's reply, possibly later.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) Schedule(fn func()) { f(fn) }

// Immediate runs scheduled work synchronously.
var Immediate Scheduler = SchedulerFunc(func(fn func()) { fn() })

// Listener receives the engine's output.
type Listener interface {
	// OnChange is called after every applied mutation.
	OnChange(Snapshot)
	// OnGameOver is called once per finished game, after OnChange.
	OnGameOver(Result)
}

// Snapshot is everything a UI needs to render the session.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	Board          game.Board      `json:"board"`
	Next           game.PlayerMark `json:"next"`
	Status         Status          `json:"status"`
	Winner         game.PlayerMark `json:"winner,omitempty"`
	Mode           Mode            `json:"mode"`
	Difficulty     bot.Difficulty  `json:"difficulty"`
	HumanMark      game.PlayerMark `json:"human_mark"`
	Scores         Scores          `json:"scores"`
	ShowScoreboard bool            `json:"show_scoreboard"`
	Message        string          `json:"message"`
	Moves          []int           `json:"moves"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Result describes a finished game.
type Result struct {
	SessionID  string          `json:"session_id"`
	Mode       Mode            `json:"mode"`
	Difficulty bot.Difficulty  `json:"difficulty"`
	Status     Status          `json:"status"`
	Winner     game.PlayerMark `json:"winner,omitempty"`
	Moves      []int           `json:"moves"`
	Scores     Scores          `json:"scores"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Session is one local game session: the board, the turn, the mode and the
// running scores. It is not safe for concurrent use.
type Session struct {
	id         string
	board      game.Board
	turn       game.PlayerMark
	mode       Mode
	status     Status
	winner     game.PlayerMark
	scores     Scores
	difficulty bot.Difficulty
	moves      []int

	human    game.PlayerMark
	computer *bot.Computer
	rng      *rand.Rand

	scheduler  Scheduler
	listener   Listener
	generation uint64
	updatedAt  time.Time
	now        func() time.Time
}

// Option configures a Session.
type Option func(*Session)

func WithMode(m Mode) Option { return func(s *Session) { s.mode = m } }

func WithDifficulty(d bot.Difficulty) Option { return func(s *Session) { s.difficulty = d } }

func WithScheduler(sc Scheduler) Option { return func(s *Session) { s.scheduler = sc } }

func WithListener(l Listener) Option { return func(s *Session) { s.listener = l } }

// WithRand seeds the computer's random choices.
func WithRand(rng *rand.Rand) Option { return func(s *Session) { s.rng = rng } }

// WithHumanMark lets the human play O, in which case the computer opens.
func WithHumanMark(mark game.PlayerMark) Option { return func(s *Session) { s.human = mark } }

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// New creates a session with an empty board and X to move.
func New(id string, opts ...Option) *Session {
	s := &Session{
		id:         id,
		turn:       game.PlayerX,
		mode:       VsComputer,
		status:     StatusInProgress,
		difficulty: bot.Adaptive,
		moves:      make([]int, 0, game.CellCount),
		human:      game.PlayerX,
		scheduler:  Immediate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.human != game.PlayerO {
		s.human = game.PlayerX
	}
	s.computer = bot.NewComputer(game.Opponent(s.human), s.rng)
	s.updatedAt = s.now()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mode returns the current mode.
func (s *Session) Mode() Mode { return s.mode }

// Scores returns the running scores.
func (s *Session) Scores() Scores { return s.scores }

// SetListener replaces the listener.
func (s *Session) SetListener(l Listener) { s.listener = l }

// SetScheduler replaces the scheduler used for computer replies.
func (s *Session) SetScheduler(sc Scheduler) { s.scheduler = sc }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	next := s.turn
	if s.status != StatusInProgress {
		next = game.None
	}
	return Snapshot{
		SessionID:      s.id,
		Board:          s.board,
		Next:           next,
		Status:         s.status,
		Winner:         s.winner,
		Mode:           s.mode,
		Difficulty:     s.difficulty,
		HumanMark:      s.human,
		Scores:         s.scores,
		ShowScoreboard: s.mode == VsComputer,
		Message:        s.statusLine(),
		Moves:          append([]int(nil), s.moves...),
		UpdatedAt:      s.updatedAt,
	}
}

func (s *Session) statusLine() string {
	switch s.status {
	case StatusWin:
		return fmt.Sprintf("Player %s wins!", s.winner)
	case StatusDraw:
		return "It's a draw!"
	default:
		return fmt.Sprintf("Player %s's turn", s.turn)
	}
}
