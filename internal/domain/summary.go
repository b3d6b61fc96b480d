package domain

import "time"

// Outcome classifies a finished game from the local player's point of view.
type Outcome string

const (
	OutcomeDraw     Outcome = "draw"
	OutcomeUserWin  Outcome = "user_win"
	OutcomeAIWin    Outcome = "ai_win"
	OutcomeOtherWin Outcome = "other_win"
)

// Classify resolves the winner against the two symbols in play. A finished
// game without a winner is a draw.
func Classify(winner Winner, user, ai Symbol) Outcome {
	switch {
	case winner == WinnerNone || winner.IsDraw():
		return OutcomeDraw
	case Symbol(winner) == user:
		return OutcomeUserWin
	case Symbol(winner) == ai:
		return OutcomeAIWin
	default:
		return OutcomeOtherWin
	}
}

// GameSummary is what gets recorded once a game ends.
type GameSummary struct {
	SessionID  string    `json:"session_id"`
	Player     string    `json:"player"`
	UserSymbol Symbol    `json:"user_symbol"`
	AISymbol   Symbol    `json:"ai_symbol"`
	Winner     Winner    `json:"winner"`
	Outcome    Outcome   `json:"outcome"`
	MoveCount  int       `json:"move_count"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

func (s GameSummary) Duration() time.Duration {
	if s.EndedAt.Before(s.StartedAt) {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}
