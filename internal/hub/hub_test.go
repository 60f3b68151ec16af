package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/events"
	eventmocks "ctchen222/tictactoe-minimax/internal/events/mocks"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/hub/types"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/repository/mocks"
	"ctchen222/tictactoe-minimax/internal/room"
	"ctchen222/tictactoe-minimax/internal/session"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const waitFor = 2 * time.Second

type fakeConn struct {
	mu      sync.Mutex
	written []proto.ServerToClientMessage
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var msg proto.ServerToClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, msg)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) firstState() *session.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.written {
		if m.Type == proto.TypeUpdate {
			return m.State
		}
	}
	return nil
}

type historyRecorder struct {
	mu      sync.Mutex
	results []session.Result
}

func (r *historyRecorder) Record(_ context.Context, res session.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *historyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type fixture struct {
	hub     *Hub
	repo    *mocks.MockSessionRepository
	bus     *eventmocks.MockBus
	events  chan events.Event
	history *historyRecorder
}

func startHub(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		repo:    mocks.NewMockSessionRepository(ctrl),
		bus:     eventmocks.NewMockBus(ctrl),
		events:  make(chan events.Event),
		history: &historyRecorder{},
	}
	f.repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.bus.EXPECT().Subscribe(gomock.Any()).Return((<-chan events.Event)(f.events), nil).AnyTimes()
	f.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.hub = NewHub(f.repo, f.bus, f.history, room.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.hub.Run(ctx)
	return f
}

func register(f *fixture, sessionID, mode string) *fakeConn {
	conn := newFakeConn()
	f.hub.Register() <- &types.RegistrationRequest{
		Player:    player.NewPlayer("p-"+sessionID, sessionID, conn),
		SessionID: sessionID,
		Mode:      mode,
	}
	return conn
}

func TestHub_RegisterStartsNewSession(t *testing.T) {
	f := startHub(t)
	f.repo.EXPECT().FindByID(gomock.Any(), "fresh").Return(nil, repository.ErrSessionNotFound)

	conn := register(f, "fresh", "two_player")

	require.Eventually(t, func() bool { return conn.firstState() != nil }, waitFor, 5*time.Millisecond)
	state := conn.firstState()
	assert.Equal(t, "fresh", state.SessionID)
	assert.Equal(t, session.TwoPlayer, state.Mode)
	assert.Equal(t, bot.Adaptive, state.Difficulty)
	assert.Empty(t, state.Moves)
}

func TestHub_RegisterRestoresStoredSession(t *testing.T) {
	f := startHub(t)
	stored := &session.Snapshot{
		SessionID:  "stored",
		Board:      game.Board{game.PlayerX, game.None, game.None, game.None, game.PlayerO},
		Next:       game.PlayerX,
		Status:     session.StatusInProgress,
		Mode:       session.VsComputer,
		Difficulty: bot.Hard,
		Scores:     session.Scores{Human: 2, Computer: 1},
		Moves:      []int{0, 4},
	}
	f.repo.EXPECT().FindByID(gomock.Any(), "stored").Return(stored, nil).Times(1)

	first := register(f, "stored", "")
	require.Eventually(t, func() bool { return first.firstState() != nil }, waitFor, 5*time.Millisecond)

	// a second tab joins the live room without another lookup
	second := register(f, "stored", "")
	require.Eventually(t, func() bool { return second.firstState() != nil }, waitFor, 5*time.Millisecond)

	for _, state := range []*session.Snapshot{first.firstState(), second.firstState()} {
		assert.Equal(t, []int{0, 4}, state.Moves)
		assert.Equal(t, session.Scores{Human: 2, Computer: 1}, state.Scores)
		assert.Equal(t, bot.Hard, state.Difficulty)
	}
}

func TestHub_RepositoryFailureClosesConnection(t *testing.T) {
	f := startHub(t)
	f.repo.EXPECT().FindByID(gomock.Any(), "broken").Return(nil, errors.New("redis down"))

	conn := register(f, "broken", "")

	select {
	case <-conn.closed:
	case <-time.After(waitFor):
		t.Fatal("connection was not closed")
	}
	assert.Nil(t, conn.firstState())
}

func TestHub_GameFinishedIsRecorded(t *testing.T) {
	f := startHub(t)

	event, err := events.New(events.TypeGameFinished, events.GameFinishedPayload{Result: session.Result{
		SessionID: "s-1",
		Mode:      session.VsComputer,
		Status:    session.StatusDraw,
		Moves:     []int{4, 0, 8, 2, 1, 7, 6, 3, 5},
	}})
	require.NoError(t, err)

	f.events <- event
	f.events <- events.Event{Type: events.TypeSessionClosed, Payload: json.RawMessage(`{"session_id":"s-1"}`)}
	f.events <- events.Event{Type: events.TypeGameFinished, Payload: json.RawMessage(`not json`)}

	require.Eventually(t, func() bool { return f.history.count() == 1 }, waitFor, 5*time.Millisecond)
	f.history.mu.Lock()
	defer f.history.mu.Unlock()
	assert.Equal(t, "s-1", f.history.results[0].SessionID)
	assert.Equal(t, session.StatusDraw, f.history.results[0].Status)
}

func TestHub_RegisterReplacesRejectedSnapshot(t *testing.T) {
	f := startHub(t)
	// Given: a stored snapshot in which both marks own a line, stamped in the future
	rejected := &session.Snapshot{
		SessionID: "broken",
		Board:     game.Board{game.PlayerX, game.PlayerX, game.PlayerX, game.PlayerO, game.PlayerO, game.PlayerO},
		Status:    session.StatusWin,
		Winner:    game.PlayerX,
		Mode:      session.VsComputer,
		Moves:     []int{0, 3, 1, 4, 2, 5},
		UpdatedAt: time.Now().Add(time.Hour),
	}
	f.repo.EXPECT().FindByID(gomock.Any(), "broken").Return(rejected, nil)
	f.repo.EXPECT().Delete(gomock.Any(), "broken").Return(nil).Times(1)

	// When: a player connects to it
	conn := register(f, "broken", "two_player")

	// Then: the old snapshot is removed and a fresh game is served
	require.Eventually(t, func() bool { return conn.firstState() != nil }, waitFor, 5*time.Millisecond)
	state := conn.firstState()
	assert.Equal(t, game.Board{}, state.Board)
	assert.Equal(t, session.TwoPlayer, state.Mode)
	assert.Equal(t, session.StatusInProgress, state.Status)
}
