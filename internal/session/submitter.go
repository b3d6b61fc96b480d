package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
)

// Submitter sends the user's moves and runs the AI turn. At most one request
// is outstanding at a time, which keeps responses in issue order.
type Submitter struct {
	c      *Controller
	flight atomic.Bool
}

// InFlight reports whether a submission is outstanding.
func (s *Submitter) InFlight() bool { return s.flight.Load() }

func (s *Submitter) acquire() bool { return s.flight.CompareAndSwap(false, true) }
func (s *Submitter) release()      { s.flight.Store(false) }

// SubmitMove takes the flight slot, validates locally, then plays (row, col).
// The response board replaces the mirror; if it is then the AI's turn and the
// server did not answer for it, the AI move is requested under the same flight.
func (s *Submitter) SubmitMove(ctx context.Context, row, col int) error {
	pos := domain.Pos{Row: row, Col: col}
	if !s.acquire() {
		s.c.status("status.busy", nil)
		return domain.ErrBusy
	}
	defer s.release()
	gen := s.c.generation()
	sess, err := s.validateMove(pos)
	if err != nil {
		s.c.reportRequestError("status.move_error", err)
		return err
	}

	s.c.status("status.processing_move", nil)
	resp, err := s.c.api.MakeMove(ctx, row, col)

	var sse *domain.SessionStateError
	if errors.As(err, &sse) {
		resp, gen, err = s.recoverAndRetry(ctx, pos, sess.UserSymbol, gen)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrStaleSession) {
			s.c.logger.Warn("move_rejected", zap.Int("row", row), zap.Int("col", col), zap.Error(err))
		}
		s.c.reportRequestError("status.move_error", err)
		return err
	}

	a, err := s.c.reconcile(gen, gameapi.OpMakeMove, resp, &pos)
	if err != nil {
		s.c.reportRequestError("status.move_error", err)
		return err
	}
	s.c.logger.Debug("move_ok",
		zap.String("session_id", a.sess.ID),
		zap.Int("row", row),
		zap.Int("col", col),
		zap.Int("move_count", a.sess.MoveCount),
	)
	switch {
	case a.finished:
		return nil
	case a.embedded:
		s.c.status("status.ai_moved", map[string]any{"Coord": a.aiMove.Label()})
		return nil
	case a.sess.CurrentPlayer != a.sess.UserSymbol:
		if err := sleepCtx(ctx, s.c.opts.AITurnDelay); err != nil {
			return err
		}
		return s.aiTurn(ctx, gen)
	default:
		s.c.status("status.your_turn", nil)
		return nil
	}
}

// RequestAIMove asks the server to play for the AI.
func (s *Submitter) RequestAIMove(ctx context.Context) error {
	if !s.acquire() {
		s.c.status("status.busy", nil)
		return domain.ErrBusy
	}
	defer s.release()
	gen := s.c.generation()
	if err := s.validateAI(); err != nil {
		s.c.reportRequestError("status.ai_move_error", err)
		return err
	}
	return s.aiTurn(ctx, gen)
}

// recoverAndRetry recreates the session with the same symbol and resends the
// move once. If the new game opens with the AI to move, its turn is played
// first and the move is validated again against the resulting board. A second
// session-state failure is reported as a protocol error.
func (s *Submitter) recoverAndRetry(ctx context.Context, pos domain.Pos, user domain.Symbol, gen uint64) (*gameapi.Response, uint64, error) {
	if s.c.generation() != gen {
		return nil, gen, domain.ErrStaleSession
	}
	s.c.logger.Info("session_recover", zap.String("symbol", string(user)), zap.Int("row", pos.Row), zap.Int("col", pos.Col))
	s.c.status("status.recovering", nil)
	if err := s.c.startGame(ctx, user, false); err != nil {
		return nil, gen, err
	}
	gen = s.c.generation()
	if s.c.Phase() == AITurn {
		if err := s.aiTurn(ctx, gen); err != nil {
			return nil, gen, err
		}
		if _, err := s.validateMove(pos); err != nil {
			return nil, gen, err
		}
	}
	resp, err := s.c.api.MakeMove(ctx, pos.Row, pos.Col)
	var sse *domain.SessionStateError
	if errors.As(err, &sse) {
		return nil, gen, &domain.ProtocolError{Op: gameapi.OpMakeMove, Message: sse.Message}
	}
	return resp, gen, err
}

// aiTurn runs one AI request. The caller holds the flight slot.
func (s *Submitter) aiTurn(ctx context.Context, gen uint64) error {
	if s.c.generation() != gen {
		return domain.ErrStaleSession
	}
	s.c.thinker.Start()
	s.c.status("status.ai_thinking", nil)
	resp, err := s.c.api.AIMove(ctx)
	s.c.thinker.Stop()
	if err != nil {
		if s.c.generation() != gen {
			return domain.ErrStaleSession
		}
		s.c.logger.Warn("ai_move_failed", zap.Error(err))
		s.c.reportRequestError("status.ai_move_error", err)
		return err
	}

	a, err := s.c.reconcile(gen, gameapi.OpAIMove, resp, nil)
	if err != nil {
		s.c.reportRequestError("status.ai_move_error", err)
		return err
	}
	s.c.logger.Debug("ai_move_ok", zap.String("session_id", a.sess.ID), zap.Int("move_count", a.sess.MoveCount))
	switch {
	case a.finished:
	case a.sess.LastMove != nil:
		s.c.status("status.ai_moved", map[string]any{"Coord": a.sess.LastMove.Label()})
	default:
		s.c.status("status.your_turn", nil)
	}
	return nil
}

// validateMove checks, in order: range, session, game over, turn, cell.
func (s *Submitter) validateMove(pos domain.Pos) (Session, error) {
	if !pos.InRange() {
		return Session{}, &domain.ValidationError{Reason: domain.ReasonOutOfRange, Pos: pos}
	}
	sess, ok := s.c.Session()
	switch {
	case !ok:
		return sess, &domain.ValidationError{Reason: domain.ReasonNoSession, Pos: pos}
	case sess.GameOver:
		return sess, &domain.ValidationError{Reason: domain.ReasonGameOver, Pos: pos}
	case sess.CurrentPlayer != sess.UserSymbol:
		return sess, &domain.ValidationError{Reason: domain.ReasonNotYourTurn, Pos: pos}
	}
	if cell, err := s.c.store.CellAt(pos.Row, pos.Col); err != nil || cell != domain.Empty {
		return sess, &domain.ValidationError{Reason: domain.ReasonCellOccupied, Pos: pos}
	}
	return sess, nil
}

func (s *Submitter) validateAI() error {
	sess, ok := s.c.Session()
	switch {
	case !ok:
		return &domain.ValidationError{Reason: domain.ReasonNoSession}
	case sess.GameOver:
		return &domain.ValidationError{Reason: domain.ReasonGameOver}
	case sess.CurrentPlayer != sess.AISymbol:
		return &domain.ValidationError{Reason: domain.ReasonNotAITurn}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
