package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/gameapi"
	"github.com/park285/omok-client/internal/gameapi/fakeserver"
	"github.com/park285/omok-client/internal/obslog"
	"github.com/park285/omok-client/internal/result"
)

type fakeView struct {
	mu         sync.Mutex
	grid       board.Grid
	renders    int
	statuses   []string
	highlights []domain.Pos
	infos      []Info
}

func (v *fakeView) Render(grid board.Grid, changed []domain.Pos) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.grid = grid
	v.renders++
}

func (v *fakeView) Highlight(pos domain.Pos) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.highlights = append(v.highlights, pos)
}

func (v *fakeView) ShowStatus(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, msg)
}

func (v *fakeView) ShowInfo(info Info) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.infos = append(v.infos, info)
}

func (v *fakeView) lastStatus() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return ""
	}
	return v.statuses[len(v.statuses)-1]
}

func (v *fakeView) hasStatus(msg string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.statuses {
		if s == msg {
			return true
		}
	}
	return false
}

func (v *fakeView) lastHighlight() (domain.Pos, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.highlights) == 0 {
		return domain.Pos{}, false
	}
	return v.highlights[len(v.highlights)-1], true
}

type presented struct {
	winner    domain.Winner
	user, ai  domain.Symbol
	moveCount int
}

type fakeResults struct {
	mu        sync.Mutex
	presented []presented
	dismissed []result.DismissReason
}

func (r *fakeResults) Present(winner domain.Winner, user, ai domain.Symbol, moveCount int) result.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presented = append(r.presented, presented{winner, user, ai, moveCount})
	return result.Result{Outcome: domain.Classify(winner, user, ai)}
}

func (r *fakeResults) Dismiss(reason result.DismissReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, reason)
}

func (r *fakeResults) all() []presented {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]presented(nil), r.presented...)
}

type fakeThinker struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeThinker) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
}

func (f *fakeThinker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeThinker) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

type recordingHook struct {
	mu    sync.Mutex
	games []FinishedGame
}

func (h *recordingHook) GameFinished(_ context.Context, g FinishedGame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.games = append(h.games, g)
	return nil
}

func (h *recordingHook) all() []FinishedGame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]FinishedGame(nil), h.games...)
}

type harness struct {
	srv     *fakeserver.Server
	ctl     *Controller
	sub     *Submitter
	view    *fakeView
	results *fakeResults
	thinker *fakeThinker
	hook    *recordingHook
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	srv := fakeserver.New()
	t.Cleanup(srv.Close)

	h := &harness{
		srv:     srv,
		view:    &fakeView{},
		results: &fakeResults{},
		thinker: &fakeThinker{},
		hook:    &recordingHook{},
	}
	opts := Options{Player: "tester", HookTimeout: time.Second}
	for _, m := range mutate {
		m(&opts)
	}
	h.ctl = NewController(Deps{
		API:     gameapi.NewClient(srv.URL, gameapi.WithTimeout(2*time.Second), gameapi.WithRetry(1)),
		View:    h.view,
		Thinker: h.thinker,
		Results: h.results,
		Hooks:   []FinishHook{h.hook},
		Logger:  obslog.L(),
	}, opts)
	t.Cleanup(h.ctl.Close)
	h.sub = h.ctl.Submitter()
	return h
}

// observeLogs routes the process logger into memory until the test ends.
// Call it before newHarness.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	obslog.Set(zap.New(core))
	t.Cleanup(func() { obslog.Set(nil) })
	return logs
}

func slowAI(o *Options) { o.AITurnDelay = time.Hour }

func at(row, col int) domain.Pos { return domain.Pos{Row: row, Col: col} }

func ptr(p domain.Pos) *domain.Pos { return &p }

// state builds a game_state payload.
func state(user, current domain.Symbol, stones map[domain.Pos]string, over bool, winner any) map[string]any {
	return map[string]any{
		"success":        true,
		"board":          fakeserver.Board(stones),
		"current_player": string(current),
		"user_symbol":    string(user),
		"ai_symbol":      string(user.Other()),
		"move_count":     len(stones),
		"game_over":      over,
		"winner":         winner,
	}
}
