package gameapi

import (
	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
)

type NewGameRequest struct {
	Symbol string `json:"symbol"`
}

type MoveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Response is the union of every endpoint's payload. Fields an endpoint does
// not send stay zero.
type Response struct {
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Board         board.Raw `json:"board"`
	CurrentPlayer string    `json:"current_player,omitempty"`
	UserSymbol    string    `json:"user_symbol,omitempty"`
	AISymbol      string    `json:"ai_symbol,omitempty"`
	MoveCount     int       `json:"move_count"`
	GameOver      bool      `json:"game_over"`
	Winner        *string   `json:"winner,omitempty"`
	AIMove        []int     `json:"ai_move,omitempty"`
}

// AIMovePos returns the embedded AI move, if the response carries a
// well-formed one.
func (r *Response) AIMovePos() (domain.Pos, bool) {
	if r == nil || len(r.AIMove) != 2 {
		return domain.Pos{}, false
	}
	p := domain.Pos{Row: r.AIMove[0], Col: r.AIMove[1]}
	if !p.InRange() {
		return domain.Pos{}, false
	}
	return p, true
}

// WinnerValue returns the winner or WinnerNone when absent.
func (r *Response) WinnerValue() domain.Winner {
	if r == nil || r.Winner == nil {
		return domain.WinnerNone
	}
	return domain.Winner(*r.Winner)
}

// Current returns current_player as a symbol, or "" when absent/unknown.
func (r *Response) Current() domain.Symbol {
	if r == nil {
		return ""
	}
	if s, err := domain.ParseSymbol(r.CurrentPlayer); err == nil {
		return s
	}
	return ""
}
