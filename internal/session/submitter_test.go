package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi/fakeserver"
)

// startAsX opens a game where the user plays X and moves first.
func startAsX(t *testing.T, h *harness, newGameReplies ...fakeserver.Reply) {
	t.Helper()
	if len(newGameReplies) == 0 {
		newGameReplies = []fakeserver.Reply{{Body: fakeserver.Started(domain.SymbolX, domain.SymbolX, nil, nil)}}
	}
	h.srv.Enqueue(fakeserver.NewGame, newGameReplies...)
	require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolX))
}

func TestSubmitMoveLocalRejection(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(t *testing.T, h *harness)
		row    int
		col    int
		reason domain.ValidationReason
		status string
	}{
		{
			name:   "no session",
			setup:  func(*testing.T, *harness) {},
			row:    7,
			col:    7,
			reason: domain.ReasonNoSession,
			status: "No game in progress. Choose a symbol first.",
		},
		{
			name:   "row out of range",
			setup:  func(t *testing.T, h *harness) { startAsX(t, h) },
			row:    15,
			col:    0,
			reason: domain.ReasonOutOfRange,
			status: "Coordinates must be between 1 and 15",
		},
		{
			name:   "negative column",
			setup:  func(t *testing.T, h *harness) { startAsX(t, h) },
			row:    3,
			col:    -1,
			reason: domain.ReasonOutOfRange,
			status: "Coordinates must be between 1 and 15",
		},
		{
			name: "occupied cell",
			setup: func(t *testing.T, h *harness) {
				h.srv.Enqueue(fakeserver.NewGame, fakeserver.Reply{
					Body: fakeserver.Started(domain.SymbolO, domain.SymbolO, map[domain.Pos]string{at(7, 7): "X"}, ptr(at(7, 7))),
				})
				require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolO))
			},
			row:    7,
			col:    7,
			reason: domain.ReasonCellOccupied,
			status: "This cell is already taken!",
		},
		{
			name: "not your turn",
			setup: func(t *testing.T, h *harness) {
				h.srv.Enqueue(fakeserver.NewGame, fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolX, nil, nil)})
				require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolO))
			},
			row:    7,
			col:    7,
			reason: domain.ReasonNotYourTurn,
			status: "It's not your turn!",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, slowAI)
			tc.setup(t, h)
			before := h.srv.TotalCalls()

			err := h.sub.SubmitMove(context.Background(), tc.row, tc.col)

			assert.True(t, domain.IsValidation(err, tc.reason), "got %v", err)
			assert.Equal(t, tc.status, h.view.lastStatus())
			assert.Equal(t, before, h.srv.TotalCalls())
			assert.Equal(t, 0, h.srv.Calls(fakeserver.MakeMove))
		})
	}
}

func TestUserWinIsPresentedAsUserWin(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	stones := map[domain.Pos]string{at(7, 3): "X", at(7, 4): "X", at(7, 5): "X", at(7, 6): "X", at(7, 7): "X",
		at(8, 3): "O", at(8, 4): "O", at(8, 5): "O", at(8, 6): "O"}
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Finished("X", stones)})

	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

	assert.Equal(t, GameOver, h.ctl.Phase())
	assert.True(t, h.view.hasStatus("Congratulations! You won!"))
	require.Eventually(t, func() bool { return len(h.results.all()) == 1 }, time.Second, 5*time.Millisecond)
	p := h.results.all()[0]
	assert.Equal(t, domain.OutcomeUserWin, domain.Classify(p.winner, p.user, p.ai))
	assert.Equal(t, 9, p.moveCount)

	games := h.hook.all()
	require.Len(t, games, 1)
	assert.Equal(t, domain.OutcomeUserWin, games[0].Summary.Outcome)
	assert.Equal(t, "tester", games[0].Summary.Player)
	assert.Equal(t, 9, games[0].Summary.MoveCount)
	require.NotNil(t, games[0].LastMove)
	assert.Equal(t, at(7, 7), *games[0].LastMove)
}

func TestDrawIsPresentedAsDraw(t *testing.T) {
	for _, winner := range []string{"draw", ""} {
		t.Run("winner="+winner, func(t *testing.T) {
			h := newHarness(t)
			startAsX(t, h)
			h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Finished(winner, map[domain.Pos]string{at(7, 7): "X"})})

			require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

			assert.True(t, h.view.hasStatus("Draw!"))
			require.Eventually(t, func() bool { return len(h.results.all()) == 1 }, time.Second, 5*time.Millisecond)
			p := h.results.all()[0]
			assert.Equal(t, domain.OutcomeDraw, domain.Classify(p.winner, p.user, p.ai))
		})
	}
}

func TestTerminalLock(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Finished("O", map[domain.Pos]string{at(7, 7): "X"})})
	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))
	calls := h.srv.TotalCalls()

	err := h.sub.SubmitMove(context.Background(), 0, 0)
	assert.True(t, domain.IsValidation(err, domain.ReasonGameOver))
	err = h.sub.RequestAIMove(context.Background())
	assert.True(t, domain.IsValidation(err, domain.ReasonGameOver))
	assert.Equal(t, calls, h.srv.TotalCalls())
	assert.Equal(t, "Game over! Start a new game.", h.view.lastStatus())
}

func TestMoveFollowedByAITurn(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Moved(domain.SymbolO, map[domain.Pos]string{at(7, 7): "X"}, nil)})
	h.srv.Enqueue(fakeserver.AIMove, fakeserver.Reply{
		Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(7, 7): "X", at(7, 8): "O"}, ptr(at(7, 8))),
	})

	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

	assert.Equal(t, 1, h.srv.Calls(fakeserver.AIMove))
	starts, stops := h.thinker.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	hl, _ := h.view.lastHighlight()
	assert.Equal(t, at(7, 8), hl)
	assert.Equal(t, "AI played I8. Your move!", h.view.lastStatus())
	sess, _ := h.ctl.Session()
	assert.Equal(t, 2, sess.MoveCount)
	assert.Equal(t, domain.SymbolX, sess.CurrentPlayer)
	assert.Equal(t, PlayerTurn, h.ctl.Phase())
	assert.False(t, h.sub.InFlight())
}

func TestEmbeddedAIMoveSkipsAIRequest(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{
		Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(7, 7): "X", at(6, 6): "O"}, ptr(at(6, 6))),
	})

	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

	assert.Equal(t, 0, h.srv.Calls(fakeserver.AIMove))
	hl, _ := h.view.lastHighlight()
	assert.Equal(t, at(6, 6), hl)
	assert.Equal(t, "AI played G7. Your move!", h.view.lastStatus())
	starts, _ := h.thinker.counts()
	assert.Equal(t, 0, starts)
}

func TestServerBoardWins(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	// the server places the stone somewhere else; its board is what we show
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{
		Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(0, 0): "X", at(1, 1): "O"}, ptr(at(1, 1))),
	})

	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

	grid := h.ctl.Board()
	assert.Equal(t, domain.Empty, grid[7][7])
	assert.Equal(t, domain.PlayerX, grid[0][0])
	assert.Equal(t, domain.PlayerO, grid[1][1])
}

func TestProtocolErrorIsShownVerbatim(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Fail("Клетка уже занята")})

	err := h.sub.SubmitMove(context.Background(), 7, 7)

	var pe *domain.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Клетка уже занята", pe.Message)
	assert.Equal(t, "Move failed: Клетка уже занята", h.view.lastStatus())
	assert.Equal(t, 0, h.ctl.Board().Occupied())
	assert.Equal(t, 1, h.srv.Calls(fakeserver.MakeMove))
}

func TestMalformedMoveResponseLeavesBoard(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	body := fakeserver.Moved(domain.SymbolO, nil, nil)
	body["board"] = fakeserver.Board(nil)[:14]
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: body})

	err := h.sub.SubmitMove(context.Background(), 7, 7)

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Connection to server failed", h.view.lastStatus())
	sess, _ := h.ctl.Session()
	assert.Equal(t, domain.SymbolX, sess.CurrentPlayer)
	assert.Equal(t, PlayerTurn, h.ctl.Phase())
}

func TestSessionStateErrorRecoversOnce(t *testing.T) {
	h := newHarness(t)
	started := fakeserver.Reply{Body: fakeserver.Started(domain.SymbolX, domain.SymbolX, nil, nil)}
	startAsX(t, h, started, started)
	h.srv.Enqueue(fakeserver.MakeMove,
		fakeserver.Reply{Body: fakeserver.Fail("Игра не инициализирована")},
		fakeserver.Reply{Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(7, 7): "X", at(7, 8): "O"}, ptr(at(7, 8)))},
	)
	before, _ := h.ctl.Session()

	require.NoError(t, h.sub.SubmitMove(context.Background(), 7, 7))

	assert.Equal(t, 2, h.srv.Calls(fakeserver.NewGame))
	bodies := h.srv.Bodies(fakeserver.MakeMove)
	require.Len(t, bodies, 2)
	for _, b := range bodies {
		assert.JSONEq(t, `{"row":7,"col":7}`, string(b))
	}
	assert.JSONEq(t, `{"symbol":"X"}`, string(h.srv.Bodies(fakeserver.NewGame)[1]))
	after, _ := h.ctl.Session()
	assert.NotEqual(t, before.ID, after.ID)
	assert.Equal(t, 2, after.MoveCount)
	assert.True(t, h.view.hasStatus("Game session was lost, starting a new one..."))
}

func TestSessionStateErrorTwiceIsProtocolError(t *testing.T) {
	h := newHarness(t)
	started := fakeserver.Reply{Body: fakeserver.Started(domain.SymbolX, domain.SymbolX, nil, nil)}
	startAsX(t, h, started, started)
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Fail("Игра не инициализирована")})

	err := h.sub.SubmitMove(context.Background(), 7, 7)

	var pe *domain.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Игра не инициализирована", pe.Message)
	assert.Equal(t, 2, h.srv.Calls(fakeserver.MakeMove))
	assert.Equal(t, 2, h.srv.Calls(fakeserver.NewGame))
	assert.Equal(t, "Move failed: Игра не инициализирована", h.view.lastStatus())
	assert.False(t, h.sub.InFlight())
}

func TestRecoveredGameWithAIToMovePlaysAIFirst(t *testing.T) {
	h := newHarness(t)
	h.srv.Enqueue(fakeserver.NewGame,
		fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolO, map[domain.Pos]string{at(7, 7): "X"}, ptr(at(7, 7)))},
		fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolX, nil, nil)},
	)
	require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolO))
	h.srv.Enqueue(fakeserver.MakeMove,
		fakeserver.Reply{Body: fakeserver.Fail("Игра не инициализирована")},
		fakeserver.Reply{Body: fakeserver.Moved(domain.SymbolO,
			map[domain.Pos]string{at(7, 7): "X", at(6, 6): "O", at(8, 8): "X"}, ptr(at(8, 8)))},
	)
	h.srv.Enqueue(fakeserver.AIMove, fakeserver.Reply{
		Body: fakeserver.Moved(domain.SymbolO, map[domain.Pos]string{at(7, 7): "X"}, ptr(at(7, 7))),
	})

	require.NoError(t, h.sub.SubmitMove(context.Background(), 6, 6))

	assert.Equal(t, 2, h.srv.Calls(fakeserver.NewGame))
	assert.Equal(t, 1, h.srv.Calls(fakeserver.AIMove))
	assert.Equal(t, 2, h.srv.Calls(fakeserver.MakeMove))
	assert.Equal(t, PlayerTurn, h.ctl.Phase())
	sess, _ := h.ctl.Session()
	assert.Equal(t, domain.SymbolO, sess.CurrentPlayer)
	assert.Equal(t, 3, sess.MoveCount)
	starts, stops := h.thinker.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	assert.False(t, h.sub.InFlight())
}

func TestRecoveredGameWhereAITakesTheCellRejectsRetry(t *testing.T) {
	h := newHarness(t)
	h.srv.Enqueue(fakeserver.NewGame,
		fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolO, map[domain.Pos]string{at(0, 0): "X"}, ptr(at(0, 0)))},
		fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolX, nil, nil)},
	)
	require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolO))
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{Body: fakeserver.Fail("Игра не инициализирована")})
	h.srv.Enqueue(fakeserver.AIMove, fakeserver.Reply{
		Body: fakeserver.Moved(domain.SymbolO, map[domain.Pos]string{at(7, 7): "X"}, ptr(at(7, 7))),
	})

	err := h.sub.SubmitMove(context.Background(), 7, 7)

	assert.True(t, domain.IsValidation(err, domain.ReasonCellOccupied), "got %v", err)
	assert.Equal(t, 1, h.srv.Calls(fakeserver.MakeMove))
	assert.Equal(t, PlayerTurn, h.ctl.Phase())
}

func TestSubmissionDuringFinishingMoveNeverReachesServer(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	release := make(chan struct{})
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{
		Wait: release,
		Body: fakeserver.Finished("X", map[domain.Pos]string{at(7, 7): "X"}),
	})

	done := make(chan error, 1)
	go func() { done <- h.sub.SubmitMove(context.Background(), 7, 7) }()
	require.Eventually(t, func() bool { return h.srv.Calls(fakeserver.MakeMove) == 1 }, time.Second, time.Millisecond)

	assert.ErrorIs(t, h.sub.SubmitMove(context.Background(), 3, 3), domain.ErrBusy)
	assert.ErrorIs(t, h.sub.RequestAIMove(context.Background()), domain.ErrBusy)

	close(release)
	require.NoError(t, <-done)

	err := h.sub.SubmitMove(context.Background(), 3, 3)
	assert.True(t, domain.IsValidation(err, domain.ReasonGameOver), "got %v", err)
	assert.Equal(t, 1, h.srv.Calls(fakeserver.MakeMove))
	assert.Equal(t, 0, h.srv.Calls(fakeserver.AIMove))
}

func TestSecondSubmissionIsBusy(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	release := make(chan struct{})
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{
		Wait: release,
		Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(7, 7): "X", at(0, 0): "O"}, ptr(at(0, 0))),
	})

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = h.sub.SubmitMove(context.Background(), 7, 7)
	}()
	require.Eventually(t, func() bool { return h.srv.Calls(fakeserver.MakeMove) == 1 }, time.Second, time.Millisecond)

	err := h.sub.SubmitMove(context.Background(), 3, 3)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.ErrorIs(t, h.ctl.Sync(context.Background()), domain.ErrBusy)
	assert.Equal(t, 1, h.srv.Calls(fakeserver.MakeMove))
	assert.Equal(t, 0, h.srv.Calls(fakeserver.GameState))

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, h.sub.InFlight())
}

func TestResponseForReplacedSessionIsDiscarded(t *testing.T) {
	h := newHarness(t)
	startAsX(t, h)
	release := make(chan struct{})
	h.srv.Enqueue(fakeserver.MakeMove, fakeserver.Reply{
		Wait: release,
		Body: fakeserver.Moved(domain.SymbolX, map[domain.Pos]string{at(7, 7): "X", at(0, 0): "O"}, ptr(at(0, 0))),
	})

	done := make(chan error, 1)
	go func() { done <- h.sub.SubmitMove(context.Background(), 7, 7) }()
	require.Eventually(t, func() bool { return h.srv.Calls(fakeserver.MakeMove) == 1 }, time.Second, time.Millisecond)

	h.ctl.Restart()
	close(release)

	assert.ErrorIs(t, <-done, domain.ErrStaleSession)
	assert.Equal(t, 0, h.ctl.Board().Occupied())
	assert.Equal(t, SelectingSymbol, h.ctl.Phase())
	assert.Equal(t, "Choose your symbol (X or O) to start a new game", h.view.lastStatus())
}

func TestRequestAIMoveValidation(t *testing.T) {
	h := newHarness(t)
	err := h.sub.RequestAIMove(context.Background())
	assert.True(t, domain.IsValidation(err, domain.ReasonNoSession))

	startAsX(t, h)
	err = h.sub.RequestAIMove(context.Background())
	assert.True(t, domain.IsValidation(err, domain.ReasonNotAITurn))
	assert.Equal(t, "It's not the AI's turn.", h.view.lastStatus())
	assert.Equal(t, 0, h.srv.Calls(fakeserver.AIMove))
}

func TestAIMoveFailureStopsThinking(t *testing.T) {
	h := newHarness(t, slowAI)
	h.srv.Enqueue(fakeserver.NewGame, fakeserver.Reply{Body: fakeserver.Started(domain.SymbolO, domain.SymbolX, nil, nil)})
	require.NoError(t, h.ctl.StartGame(context.Background(), domain.SymbolO))
	h.srv.Enqueue(fakeserver.AIMove, fakeserver.Reply{Body: fakeserver.Fail("engine crashed")})

	err := h.sub.RequestAIMove(context.Background())

	var pe *domain.ProtocolError
	require.ErrorAs(t, err, &pe)
	starts, stops := h.thinker.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, stops)
	assert.Equal(t, "AI move failed: engine crashed", h.view.lastStatus())
	assert.Equal(t, AITurn, h.ctl.Phase())
}
