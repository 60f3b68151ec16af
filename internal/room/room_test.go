package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ctchen222/tictactoe-minimax/internal/events"
	eventmocks "ctchen222/tictactoe-minimax/internal/events/mocks"
	"ctchen222/tictactoe-minimax/internal/game"
	"ctchen222/tictactoe-minimax/internal/player"
	"ctchen222/tictactoe-minimax/internal/repository/mocks"
	"ctchen222/tictactoe-minimax/internal/session"
	"ctchen222/tictactoe-minimax/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const waitFor = 2 * time.Second

var errClosed = errors.New("connection closed")

// fakeConn is an in-memory player.Connection.
type fakeConn struct {
	mu        sync.Mutex
	written   [][]byte
	reads     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.reads:
		return websocket.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, errClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages(t *testing.T) []proto.ServerToClientMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]proto.ServerToClientMessage, 0, len(c.written))
	for _, data := range c.written {
		var msg proto.ServerToClientMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) proto.ServerToClientMessage {
	t.Helper()
	msgs := c.messages(t)
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

func (c *fakeConn) count(t *testing.T, msgType string) int {
	n := 0
	for _, m := range c.messages(t) {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func send(t *testing.T, c *fakeConn, msg proto.ClientToServerMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	c.reads <- data
}

func cell(i int) *int { return &i }

// publishedEvents collects events handed to the bus.
type publishedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *publishedEvents) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	room      *Room
	repo      *mocks.MockSessionRepository
	published *publishedEvents
	closedID  chan string
}

func startRoom(t *testing.T, s *session.Session, opts Options) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSessionRepository(ctrl)
	bus := eventmocks.NewMockBus(ctrl)

	f := &fixture{repo: repo, published: &publishedEvents{}, closedID: make(chan string, 1)}
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	bus.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.Event) error {
		f.published.mu.Lock()
		defer f.published.mu.Unlock()
		f.published.events = append(f.published.events, e)
		return nil
	}).AnyTimes()

	f.room = NewRoom(s, repo, bus, opts)
	f.room.OnClose(func(id string) { f.closedID <- id })
	go f.room.Run(context.Background())
	t.Cleanup(func() {
		f.room.Close()
		<-f.room.Done()
	})
	return f
}

func join(t *testing.T, r *Room, id string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	p := player.NewPlayer(id, r.ID, conn)
	require.True(t, r.Join(p))
	go r.ReadPump(p)
	return conn
}

func TestRoom_JoinSendsState(t *testing.T) {
	f := startRoom(t, session.New("s-join"), Options{})
	conn := join(t, f.room, "p1")

	require.Eventually(t, func() bool { return conn.count(t, proto.TypeUpdate) == 1 }, waitFor, 5*time.Millisecond)
	msg := conn.last(t)
	require.NotNil(t, msg.State)
	assert.Equal(t, "s-join", msg.State.SessionID)
	assert.Equal(t, game.PlayerX, msg.State.Next)
}

func TestRoom_ComputerRepliesAfterHumanMove(t *testing.T) {
	// Given: a vs_computer room with one player
	f := startRoom(t, session.New("s-cpu"), Options{ComputerDelay: time.Millisecond})
	conn := join(t, f.room, "p1")

	// When: the human takes the centre
	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(4)})

	// Then: the player sees the human move and then the computer's corner
	require.Eventually(t, func() bool {
		msg := conn.last(t)
		return msg.State != nil && len(msg.State.Moves) == 2
	}, waitFor, 5*time.Millisecond)

	final := conn.last(t).State
	assert.Equal(t, game.PlayerX, final.Board[4])
	assert.Equal(t, game.PlayerO, final.Board[0])
	assert.Equal(t, game.PlayerX, final.Next)
}

func TestRoom_RejectedMoveOnlyReachesSender(t *testing.T) {
	f := startRoom(t, session.New("s-rej", session.WithMode(session.TwoPlayer)), Options{})
	a := join(t, f.room, "a")
	b := join(t, f.room, "b")

	send(t, a, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(0)})
	require.Eventually(t, func() bool { return b.count(t, proto.TypeUpdate) >= 2 }, waitFor, 5*time.Millisecond)

	send(t, a, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(0)})
	require.Eventually(t, func() bool { return a.count(t, proto.TypeRejected) == 1 }, waitFor, 5*time.Millisecond)

	rejected := a.last(t)
	assert.Contains(t, rejected.Reason, "occupied")
	require.NotNil(t, rejected.State)
	assert.Equal(t, game.PlayerO, rejected.State.Next)
	assert.Zero(t, b.count(t, proto.TypeRejected))
}

func TestRoom_InvalidMessagesAreRejected(t *testing.T) {
	f := startRoom(t, session.New("s-bad"), Options{})
	conn := join(t, f.room, "p1")

	conn.reads <- []byte("{not json")
	send(t, conn, proto.ClientToServerMessage{Type: "rematch"})
	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeMove})
	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(9)})

	require.Eventually(t, func() bool { return conn.count(t, proto.TypeRejected) == 4 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 1, conn.count(t, proto.TypeUpdate))
}

func TestRoom_GameOverPublishesResult(t *testing.T) {
	// Given: X about to complete the top row in a two-player game
	s, err := session.Restore(session.Snapshot{
		SessionID: "s-over",
		Board:     game.Board{game.PlayerX, game.PlayerX, game.None, game.PlayerO, game.PlayerO},
		Next:      game.PlayerX,
		Status:    session.StatusInProgress,
		Mode:      session.TwoPlayer,
		Moves:     []int{0, 3, 1, 4},
	})
	require.NoError(t, err)
	f := startRoom(t, s, Options{})
	conn := join(t, f.room, "p1")

	// When: X plays the winning cell
	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(2)})

	// Then: the player gets game_over and a game_finished event is published
	require.Eventually(t, func() bool { return conn.count(t, proto.TypeGameOver) == 1 }, waitFor, 5*time.Millisecond)
	over := conn.last(t)
	require.NotNil(t, over.Result)
	assert.Equal(t, session.StatusWin, over.Result.Status)
	assert.Equal(t, game.PlayerX, over.Result.Winner)

	require.Eventually(t, func() bool {
		types := f.published.types()
		return len(types) == 1 && types[0] == events.TypeGameFinished
	}, waitFor, 5*time.Millisecond)
}

func TestRoom_RestartAndToggle(t *testing.T) {
	f := startRoom(t, session.New("s-rt", session.WithMode(session.TwoPlayer)), Options{})
	conn := join(t, f.room, "p1")

	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeMove, Cell: cell(0)})
	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeRestart})
	require.Eventually(t, func() bool { return conn.count(t, proto.TypeUpdate) == 3 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, game.Board{}, conn.last(t).State.Board)

	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeToggleMode})
	require.Eventually(t, func() bool { return conn.count(t, proto.TypeUpdate) == 4 }, waitFor, 5*time.Millisecond)
	state := conn.last(t).State
	assert.Equal(t, session.VsComputer, state.Mode)
	assert.True(t, state.ShowScoreboard)

	send(t, conn, proto.ClientToServerMessage{Type: proto.TypeDifficulty, Difficulty: "hard"})
	require.Eventually(t, func() bool { return conn.count(t, proto.TypeUpdate) == 5 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, "hard", string(conn.last(t).State.Difficulty))
}

func TestRoom_ClosesAfterGracePeriod(t *testing.T) {
	f := startRoom(t, session.New("s-grace"), Options{ReconnectGrace: 20 * time.Millisecond})
	conn := join(t, f.room, "p1")
	require.Eventually(t, func() bool { return conn.count(t, proto.TypeUpdate) == 1 }, waitFor, 5*time.Millisecond)

	// When: the only connection drops
	_ = conn.Close()

	// Then: the room closes and announces it
	select {
	case id := <-f.closedID:
		assert.Equal(t, "s-grace", id)
	case <-time.After(waitFor):
		t.Fatal("room did not close")
	}
	assert.Contains(t, f.published.types(), events.TypeSessionClosed)
	assert.False(t, f.room.Join(player.NewPlayer("late", "s-grace", newFakeConn())))
}
