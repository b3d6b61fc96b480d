package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
	"github.com/park285/omok-client/internal/msgcat"
	"github.com/park285/omok-client/internal/obslog"
	"github.com/park285/omok-client/internal/result"
)

type Deps struct {
	API     API
	Store   *board.Store
	View    Renderer
	Thinker Thinker
	Results Results
	Catalog *msgcat.Catalog
	Hooks   []FinishHook
	Logger  *zap.Logger
	Now     func() time.Time
}

type Options struct {
	// Player is recorded in game summaries.
	Player      string
	AITurnDelay time.Duration
	ResultDelay time.Duration
	HookTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		AITurnDelay: 500 * time.Millisecond,
		ResultDelay: time.Second,
		HookTimeout: 5 * time.Second,
	}
}

// Controller owns symbol selection, the current Session and the phase.
type Controller struct {
	api     API
	store   *board.Store
	view    Renderer
	thinker Thinker
	results Results
	cat     *msgcat.Catalog
	hooks   []FinishHook
	logger  *zap.Logger
	now     func() time.Time
	opts    Options

	sub      *Submitter
	starting atomic.Bool

	mu          sync.Mutex
	phase       Phase
	candidate   domain.Symbol
	sess        *Session
	gen         uint64
	aiTimer     *time.Timer
	resultTimer *time.Timer
}

func NewController(d Deps, opts Options) *Controller {
	c := &Controller{
		api:     d.API,
		store:   d.Store,
		view:    d.View,
		thinker: d.Thinker,
		results: d.Results,
		cat:     d.Catalog,
		hooks:   d.Hooks,
		logger:  d.Logger,
		now:     d.Now,
		opts:    opts,
	}
	if c.store == nil {
		c.store = board.NewStore()
	}
	if c.thinker == nil {
		c.thinker = noopThinker{}
	}
	if c.results == nil {
		c.results = noopResults{}
	}
	if c.cat == nil {
		c.cat = msgcat.MustDefault()
	}
	if c.logger == nil {
		c.logger = obslog.L()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.sub = &Submitter{c: c}
	return c
}

func (c *Controller) Submitter() *Submitter { return c.sub }

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns a copy of the current session.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return Session{}, false
	}
	return *c.sess, true
}

func (c *Controller) Board() board.Grid { return c.store.Snapshot() }

func (c *Controller) Candidate() domain.Symbol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidate
}

// SelectSymbol records the symbol for the next game. No request is made.
func (c *Controller) SelectSymbol(symbol domain.Symbol) error {
	if !symbol.Valid() {
		return domain.ErrInvalidSymbol
	}
	c.mu.Lock()
	c.candidate = symbol
	c.mu.Unlock()
	return nil
}

// StartGame requests a new game and replaces the session on success. A
// failure leaves the previous session and board untouched.
func (c *Controller) StartGame(ctx context.Context, symbol domain.Symbol) error {
	if !symbol.Valid() {
		return domain.ErrInvalidSymbol
	}
	return c.startGame(ctx, symbol, true)
}

// NewGameFromResult starts another game with the remembered symbol, or goes
// back to symbol selection when none was chosen.
func (c *Controller) NewGameFromResult(ctx context.Context) error {
	symbol := c.Candidate()
	if !symbol.Valid() {
		c.Restart()
		return nil
	}
	return c.StartGame(ctx, symbol)
}

// Restart drops the session and returns to symbol selection.
func (c *Controller) Restart() {
	c.results.Dismiss(result.DismissNewGame)

	c.mu.Lock()
	c.gen++
	c.stopTimersLocked()
	c.sess = nil
	c.phase = SelectingSymbol
	changed := c.store.Reset()
	grid := c.store.Snapshot()
	info := c.infoLocked()
	c.mu.Unlock()

	c.view.Render(grid, changed)
	c.view.ShowInfo(info)
	c.status("status.choose_symbol", nil)
}

// Sync fetches the server's game state and reconciles against it. It shares
// the single-flight slot with move submission.
func (c *Controller) Sync(ctx context.Context) error {
	if !c.sub.acquire() {
		c.status("status.busy", nil)
		return domain.ErrBusy
	}
	defer c.sub.release()

	gen := c.generation()
	resp, err := c.api.GameState(ctx)
	if err != nil {
		c.reportRequestError("status.sync_error", err)
		return err
	}
	a, err := c.adoptState(gen, resp)
	if err != nil {
		if !errors.Is(err, domain.ErrStaleSession) {
			c.reportRequestError("status.sync_error", err)
		}
		return err
	}
	c.logger.Debug("game_state_synced",
		zap.String("session_id", a.sess.ID),
		zap.Int("move_count", a.sess.MoveCount),
		zap.Bool("game_over", a.sess.GameOver),
	)
	return nil
}

// Close stops pending timers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.stopTimersLocked()
}

func (c *Controller) startGame(ctx context.Context, symbol domain.Symbol, scheduleAI bool) error {
	if !c.starting.CompareAndSwap(false, true) {
		c.status("status.busy", nil)
		return domain.ErrBusy
	}
	defer c.starting.Store(false)

	c.mu.Lock()
	prev := c.phase
	c.candidate = symbol
	c.phase = AwaitingNewGameAck
	c.mu.Unlock()

	c.results.Dismiss(result.DismissNewGame)
	c.status("status.creating", nil)

	resp, err := c.api.NewGame(ctx, symbol)
	if err == nil {
		err = c.adoptNewGame(resp, symbol, scheduleAI)
	}
	if err != nil {
		c.mu.Lock()
		if c.phase == AwaitingNewGameAck {
			c.phase = prev
		}
		c.mu.Unlock()
		c.logger.Warn("new_game_failed", zap.String("symbol", string(symbol)), zap.Error(err))
		c.reportRequestError("status.new_game_error", err)
		return err
	}
	return nil
}

func (c *Controller) adoptNewGame(resp *gameapi.Response, symbol domain.Symbol, scheduleAI bool) error {
	if _, err := board.Normalize(resp.Board); err != nil {
		return &domain.TransportError{Op: gameapi.OpNewGame, Err: err}
	}
	user := symbol
	if s, err := domain.ParseSymbol(resp.UserSymbol); err == nil {
		user = s
	}
	current := resp.Current()
	if current == "" {
		current = user
	}
	sess := &Session{
		ID:            uuid.NewString(),
		UserSymbol:    user,
		AISymbol:      user.Other(),
		CurrentPlayer: current,
		StartedAt:     c.now(),
	}
	aiPos, embedded := resp.AIMovePos()
	if embedded {
		sess.LastMove = &aiPos
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.stopTimersLocked()
	changed, _ := c.store.Apply(resp.Board)
	sess.MoveCount = c.countLocked(gameapi.OpNewGame, resp.MoveCount)
	c.sess = sess
	switch {
	case embedded || current == user:
		c.phase = PlayerTurn
	default:
		c.phase = AITurn
	}
	phase := c.phase
	grid := c.store.Snapshot()
	info := c.infoLocked()
	c.mu.Unlock()

	c.logger.Info("new_game_ok",
		zap.String("session_id", sess.ID),
		zap.String("user_symbol", string(user)),
		zap.String("current_player", string(current)),
		zap.Bool("ai_opened", embedded),
	)
	c.view.Render(grid, changed)
	if embedded {
		c.view.Highlight(aiPos)
	}
	c.view.ShowInfo(info)
	if phase == AITurn {
		c.status("status.started_ai_first", map[string]any{"Symbol": string(user)})
		if scheduleAI {
			c.scheduleAI(gen)
		}
	} else {
		c.status("status.started_your_turn", map[string]any{"Symbol": string(user)})
	}
	return nil
}

// applied is the outcome of one reconciliation.
type applied struct {
	gen      uint64
	sess     Session
	grid     board.Grid
	changed  []domain.Pos
	aiMove   domain.Pos
	embedded bool
	finished bool
}

// reconcile applies a move response to the session it was issued for.
// hint is the position the user just played, if any.
func (c *Controller) reconcile(gen uint64, op string, resp *gameapi.Response, hint *domain.Pos) (applied, error) {
	c.mu.Lock()
	if c.gen != gen || c.sess == nil {
		c.mu.Unlock()
		return applied{}, domain.ErrStaleSession
	}
	changed, err := c.store.Apply(resp.Board)
	if err != nil {
		c.mu.Unlock()
		return applied{}, &domain.TransportError{Op: op, Err: err}
	}
	s := c.sess
	s.MoveCount = c.countLocked(op, resp.MoveCount)
	aiPos, embedded := resp.AIMovePos()
	switch {
	case embedded:
		s.LastMove = &aiPos
	case hint != nil:
		p := *hint
		s.LastMove = &p
	case len(changed) == 1:
		p := changed[0]
		s.LastMove = &p
	}
	c.advanceLocked(s, resp)
	a := applied{
		gen:      gen,
		sess:     *s,
		grid:     c.store.Snapshot(),
		changed:  changed,
		aiMove:   aiPos,
		embedded: embedded,
		finished: s.GameOver,
	}
	info := c.infoLocked()
	c.mu.Unlock()

	c.show(a, info)
	if a.finished {
		c.finish(a)
	}
	return a, nil
}

// adoptState reconciles a game_state response. Symbols come from the server;
// a session is created when none exists locally or the symbols disagree.
func (c *Controller) adoptState(gen uint64, resp *gameapi.Response) (applied, error) {
	if _, err := board.Normalize(resp.Board); err != nil {
		return applied{}, &domain.TransportError{Op: gameapi.OpGameState, Err: err}
	}
	user, err := domain.ParseSymbol(resp.UserSymbol)
	if err != nil {
		return applied{}, &domain.ProtocolError{Op: gameapi.OpGameState, Message: "game state without user symbol"}
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return applied{}, domain.ErrStaleSession
	}
	wasOver := false
	if c.sess == nil || c.sess.UserSymbol != user {
		c.gen++
		c.stopTimersLocked()
		c.sess = &Session{
			ID:            uuid.NewString(),
			UserSymbol:    user,
			AISymbol:      user.Other(),
			CurrentPlayer: user,
			StartedAt:     c.now(),
		}
		c.candidate = user
	} else {
		wasOver = c.sess.GameOver
	}
	changed, _ := c.store.Apply(resp.Board)
	s := c.sess
	s.MoveCount = c.countLocked(gameapi.OpGameState, resp.MoveCount)
	if !wasOver {
		c.advanceLocked(s, resp)
	}
	a := applied{
		gen:      c.gen,
		sess:     *s,
		grid:     c.store.Snapshot(),
		changed:  changed,
		finished: s.GameOver && !wasOver,
	}
	aiTurn := c.phase == AITurn
	info := c.infoLocked()
	c.mu.Unlock()

	c.show(a, info)
	if a.finished {
		c.finish(a)
	}
	if aiTurn {
		c.scheduleAI(a.gen)
	}
	return a, nil
}

// advanceLocked moves the session and phase forward from a response. Game
// over is taken only from the explicit flag; current player freezes with it.
func (c *Controller) advanceLocked(s *Session, resp *gameapi.Response) {
	if resp.GameOver {
		s.GameOver = true
		s.Winner = resp.WinnerValue()
		s.EndedAt = c.now()
		c.phase = GameOver
		return
	}
	if cur := resp.Current(); cur != "" {
		s.CurrentPlayer = cur
	}
	if s.CurrentPlayer == s.UserSymbol {
		c.phase = PlayerTurn
	} else {
		c.phase = AITurn
	}
}

// countLocked returns the occupied count, which is authoritative over the
// server's move_count.
func (c *Controller) countLocked(op string, reported int) int {
	n := c.store.Occupied()
	if n != reported {
		c.logger.Warn("move_count_mismatch",
			zap.String("op", op),
			zap.Int("reported", reported),
			zap.Int("occupied", n),
		)
	}
	return n
}

func (c *Controller) show(a applied, info Info) {
	c.view.Render(a.grid, a.changed)
	if a.sess.LastMove != nil {
		c.view.Highlight(*a.sess.LastMove)
	}
	c.view.ShowInfo(info)
}

func (c *Controller) finish(a applied) {
	s := a.sess
	outcome := domain.Classify(s.Winner, s.UserSymbol, s.AISymbol)
	c.logger.Info("game_over",
		zap.String("session_id", s.ID),
		zap.String("winner", string(s.Winner)),
		zap.String("outcome", string(outcome)),
		zap.Int("move_count", s.MoveCount),
	)
	c.status("status."+string(outcome), map[string]any{"Winner": string(s.Winner)})

	g := FinishedGame{
		Summary: domain.GameSummary{
			SessionID:  s.ID,
			Player:     c.opts.Player,
			UserSymbol: s.UserSymbol,
			AISymbol:   s.AISymbol,
			Winner:     s.Winner,
			Outcome:    outcome,
			MoveCount:  s.MoveCount,
			StartedAt:  s.StartedAt,
			EndedAt:    s.EndedAt,
		},
		Board:    a.grid,
		LastMove: s.LastMove,
	}
	for _, h := range c.hooks {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HookTimeout)
		if err := h.GameFinished(ctx, g); err != nil {
			c.logger.Warn("finish_hook_failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != a.gen {
		return
	}
	if c.resultTimer != nil {
		c.resultTimer.Stop()
	}
	c.resultTimer = time.AfterFunc(c.opts.ResultDelay, func() {
		if c.generation() != a.gen {
			return
		}
		c.results.Present(s.Winner, s.UserSymbol, s.AISymbol, s.MoveCount)
	})
}

// scheduleAI requests the AI move after the pacing delay, unless the session
// has been replaced by then.
func (c *Controller) scheduleAI(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if c.aiTimer != nil {
		c.aiTimer.Stop()
	}
	c.aiTimer = time.AfterFunc(c.opts.AITurnDelay, func() { c.runScheduledAI(gen) })
}

func (c *Controller) runScheduledAI(gen uint64) {
	if c.generation() != gen {
		return
	}
	if err := c.sub.RequestAIMove(context.Background()); err != nil && !errors.Is(err, domain.ErrStaleSession) {
		c.logger.Warn("scheduled_ai_move_failed", zap.Error(err))
	}
}

func (c *Controller) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Controller) stopTimersLocked() {
	if c.aiTimer != nil {
		c.aiTimer.Stop()
		c.aiTimer = nil
	}
	if c.resultTimer != nil {
		c.resultTimer.Stop()
		c.resultTimer = nil
	}
}

func (c *Controller) infoLocked() Info {
	info := Info{Phase: c.phase}
	if c.sess != nil {
		info.UserSymbol = c.sess.UserSymbol
		info.AISymbol = c.sess.AISymbol
		info.CurrentPlayer = c.sess.CurrentPlayer
		info.MoveCount = c.sess.MoveCount
		info.GameOver = c.sess.GameOver
		info.Winner = c.sess.Winner
	}
	return info
}

func (c *Controller) status(key string, data any) {
	c.view.ShowStatus(c.cat.Text(key, data))
}

var validationKeys = map[domain.ValidationReason]string{
	domain.ReasonOutOfRange:   "status.out_of_range",
	domain.ReasonGameOver:     "status.game_over",
	domain.ReasonNotYourTurn:  "status.not_your_turn",
	domain.ReasonCellOccupied: "status.cell_occupied",
	domain.ReasonNoSession:    "status.no_session",
	domain.ReasonNotAITurn:    "status.not_ai_turn",
}

// reportRequestError turns a failed request into a status line. Transport
// problems get the generic text, server reasons are shown as sent.
func (c *Controller) reportRequestError(key string, err error) {
	var (
		ve  *domain.ValidationError
		te  *domain.TransportError
		pe  *domain.ProtocolError
		sse *domain.SessionStateError
	)
	switch {
	case errors.Is(err, domain.ErrStaleSession):
	case errors.Is(err, domain.ErrBusy):
		c.status("status.busy", nil)
	case errors.As(err, &ve):
		c.status(validationKeys[ve.Reason], nil)
	case errors.As(err, &te):
		c.status("status.connection_error", nil)
	case errors.As(err, &pe):
		c.status(key, map[string]any{"Error": pe.Message})
	case errors.As(err, &sse):
		c.status(key, map[string]any{"Error": sse.Message})
	default:
		c.status(key, map[string]any{"Error": err.Error()})
	}
}
