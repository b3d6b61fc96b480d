package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
)

// omokcheck checks the game server: it fetches the current game state and
// verifies that the board is well formed and agrees with move_count.
func main() {
	baseURL := os.Getenv("OMOK_BASE_URL")
	if baseURL == "" {
		log.Fatal("OMOK_BASE_URL is required")
	}

	client := gameapi.NewClient(baseURL, gameapi.WithTimeout(8*time.Second), gameapi.WithRetry(2))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := client.GameState(ctx)
	var sse *domain.SessionStateError
	switch {
	case errors.As(err, &sse):
		log.Printf("/api/game_state ok: no active game (%s)", sse.Message)
		return
	case err != nil:
		log.Fatalf("/api/game_state error: %v", err)
	}

	grid, err := board.Normalize(resp.Board)
	if err != nil {
		log.Fatalf("/api/game_state board: %v", err)
	}
	log.Printf("/api/game_state ok: user=%s ai=%s current=%s moves=%d game_over=%t winner=%q",
		resp.UserSymbol, resp.AISymbol, resp.CurrentPlayer, resp.MoveCount, resp.GameOver, resp.WinnerValue())
	if n := grid.Occupied(); n != resp.MoveCount {
		log.Printf("warning: board has %d stones but move_count is %d", n, resp.MoveCount)
	}
}
