package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/omok-client/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS omok_games (
	session_id  TEXT PRIMARY KEY,
	player      TEXT NOT NULL,
	user_symbol TEXT NOT NULL,
	ai_symbol   TEXT NOT NULL,
	winner      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	move_count  INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`

const upsertGame = `INSERT INTO omok_games (
	session_id, player, user_symbol, ai_symbol, winner, outcome,
	move_count, started_at, ended_at, duration_ms
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (session_id) DO UPDATE SET
	player=EXCLUDED.player,
	user_symbol=EXCLUDED.user_symbol,
	ai_symbol=EXCLUDED.ai_symbol,
	winner=EXCLUDED.winner,
	outcome=EXCLUDED.outcome,
	move_count=EXCLUDED.move_count,
	started_at=EXCLUDED.started_at,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

// Archive stores every finished game in Postgres.
type Archive struct {
	db *sql.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Record upserts by session id, so replays of the same game are harmless.
func (a *Archive) Record(ctx context.Context, g domain.GameSummary) error {
	if a == nil || a.db == nil {
		return nil
	}
	_, err := a.db.ExecContext(ctx, upsertGame, archiveArgs(g)...)
	return err
}

func archiveArgs(g domain.GameSummary) []any {
	winner := string(g.Winner)
	if winner == "" {
		winner = string(domain.WinnerDraw)
	}
	return []any{
		g.SessionID,
		g.Player,
		string(g.UserSymbol),
		string(g.AISymbol),
		winner,
		string(g.Outcome),
		g.MoveCount,
		g.StartedAt,
		g.EndedAt,
		g.Duration().Milliseconds(),
	}
}
