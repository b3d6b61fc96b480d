// Package session owns the game lifecycle: symbol choice, the turn state
// machine, move submission and the AI turn. The server is the only authority
// on the board; everything here reconciles against its responses.
package session

import (
	"context"
	"time"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
	"github.com/park285/omok-client/internal/result"
)

type Phase int

const (
	SelectingSymbol Phase = iota
	AwaitingNewGameAck
	PlayerTurn
	AITurn
	GameOver
)

func (p Phase) String() string {
	switch p {
	case SelectingSymbol:
		return "selecting_symbol"
	case AwaitingNewGameAck:
		return "awaiting_new_game_ack"
	case PlayerTurn:
		return "player_turn"
	case AITurn:
		return "ai_turn"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Session is one game, replaced wholesale on new game or restart.
type Session struct {
	ID            string
	UserSymbol    domain.Symbol
	AISymbol      domain.Symbol
	CurrentPlayer domain.Symbol
	MoveCount     int
	GameOver      bool
	Winner        domain.Winner
	LastMove      *domain.Pos
	StartedAt     time.Time
	EndedAt       time.Time
}

// Info feeds the side panel.
type Info struct {
	Phase         Phase
	UserSymbol    domain.Symbol
	AISymbol      domain.Symbol
	CurrentPlayer domain.Symbol
	MoveCount     int
	GameOver      bool
	Winner        domain.Winner
}

// Renderer is the display side. Calls never happen with internal locks held.
type Renderer interface {
	Render(grid board.Grid, changed []domain.Pos)
	Highlight(pos domain.Pos)
	ShowStatus(msg string)
	ShowInfo(info Info)
}

// API is the subset of gameapi.Client the engine uses.
type API interface {
	NewGame(ctx context.Context, symbol domain.Symbol) (*gameapi.Response, error)
	MakeMove(ctx context.Context, row, col int) (*gameapi.Response, error)
	AIMove(ctx context.Context) (*gameapi.Response, error)
	GameState(ctx context.Context) (*gameapi.Response, error)
}

// Thinker is the progress indicator run during an AI request.
type Thinker interface {
	Start()
	Stop()
}

// Results presents the final outcome.
type Results interface {
	Present(winner domain.Winner, user, ai domain.Symbol, moveCount int) result.Result
	Dismiss(reason result.DismissReason)
}

// FinishedGame is handed to every FinishHook once a game ends.
type FinishedGame struct {
	Summary  domain.GameSummary
	Board    board.Grid
	LastMove *domain.Pos
}

type FinishHook interface {
	GameFinished(ctx context.Context, g FinishedGame) error
}

// FinishFunc adapts a plain function to FinishHook.
type FinishFunc func(ctx context.Context, g FinishedGame) error

func (f FinishFunc) GameFinished(ctx context.Context, g FinishedGame) error { return f(ctx, g) }

type noopThinker struct{}

func (noopThinker) Start() {}
func (noopThinker) Stop()  {}

type noopResults struct{}

func (noopResults) Present(winner domain.Winner, user, ai domain.Symbol, moveCount int) result.Result {
	return result.Result{}
}
func (noopResults) Dismiss(result.DismissReason) {}
