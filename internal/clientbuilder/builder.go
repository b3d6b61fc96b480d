// Package clientbuilder wires configuration into a ready-to-use client.
package clientbuilder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/omok-client/internal/adapter/termpresenter"
	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/config"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
	"github.com/park285/omok-client/internal/history"
	"github.com/park285/omok-client/internal/msgcat"
	"github.com/park285/omok-client/internal/render"
	"github.com/park285/omok-client/internal/result"
	"github.com/park285/omok-client/internal/session"
	"github.com/park285/omok-client/internal/thinking"
)

type Deps struct {
	Controller *session.Controller
	Submitter  *session.Submitter
	Terminal   *termpresenter.Presenter
	Results    *result.Presenter
	Thinking   *thinking.Animator
	History    *history.Recorder
	Catalog    *msgcat.Catalog
	API        *gameapi.Client

	redis   *redis.Client
	archive *history.Archive
	snapDir string
}

// New builds every component. Redis and Postgres are optional; without
// REDIS_URL history is kept in memory.
func New(cfg *config.AppConfig, logger *zap.Logger, out, alert io.Writer) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	d := &Deps{Catalog: cat, snapDir: strings.TrimSpace(cfg.SnapshotDir)}

	var primary history.Store = history.NewMemoryStore(cfg.HistoryLimit)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := history.OpenRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.redis = rdb
		primary = history.NewRedisStore(rdb, cfg.Player, cfg.HistoryLimit)
	}
	var sinks []history.Sink
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		archive, err := history.NewArchive(cfg.DatabaseURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.archive = archive
		sinks = append(sinks, archive)
	}
	d.History = history.NewRecorder(primary, sinks...)

	d.API = gameapi.NewClient(cfg.BaseURL,
		gameapi.WithTimeout(cfg.RequestTimeout),
		gameapi.WithRetry(cfg.StateRetry),
	)
	d.Terminal = termpresenter.NewPresenter(out, alert)
	d.Thinking = thinking.New(d.Terminal, thinking.Options{
		Tick:    cfg.Timing.ThinkTick,
		Grace:   cfg.Timing.ThinkGrace,
		Phrases: cat.List("thinking.phrases"),
	})
	d.Results = result.NewPresenter(d.Terminal, d.Terminal, cat,
		result.WithGrace(cfg.Timing.ResultGrace),
		result.WithLogger(logger),
	)

	hooks := []session.FinishHook{session.FinishFunc(func(ctx context.Context, g session.FinishedGame) error {
		return d.History.Record(ctx, g.Summary)
	})}
	if d.snapDir != "" {
		hooks = append(hooks, session.FinishFunc(func(ctx context.Context, g session.FinishedGame) error {
			path, err := d.writeSnapshot(ctx, g.Board, g.LastMove, g.Summary.SessionID, string(g.Summary.Outcome))
			if err == nil {
				logger.Info("snapshot_written", zap.String("path", path))
			}
			return err
		}))
	}

	d.Controller = session.NewController(session.Deps{
		API:     d.API,
		Store:   board.NewStore(),
		View:    d.Terminal,
		Thinker: d.Thinking,
		Results: d.Results,
		Catalog: cat,
		Hooks:   hooks,
		Logger:  logger,
	}, session.Options{
		Player:      cfg.Player,
		AITurnDelay: cfg.Timing.AITurnDelay,
		ResultDelay: cfg.Timing.ResultDelay,
		HookTimeout: 5 * time.Second,
	})
	d.Submitter = d.Controller.Submitter()
	return d, nil
}

// Snapshot writes the current board to the snapshot directory.
func (d *Deps) Snapshot(ctx context.Context) (string, error) {
	if d.snapDir == "" {
		return "", errors.New("OMOK_SNAPSHOT_DIR is not set")
	}
	grid, last := d.Terminal.Board()
	id := "nosession"
	if s, ok := d.Controller.Session(); ok {
		id = s.ID
	}
	return d.writeSnapshot(ctx, grid, last, id, "")
}

func (d *Deps) writeSnapshot(ctx context.Context, grid board.Grid, last *domain.Pos, id, title string) (string, error) {
	name := fmt.Sprintf("%s-%s.png", time.Now().Format("20060102-150405"), id)
	return render.WriteFile(ctx, d.snapDir, name, grid, render.Options{LastMove: last, Title: title})
}

func (d *Deps) Close() {
	if d.Controller != nil {
		d.Controller.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.archive != nil {
		_ = d.archive.Close()
	}
}
