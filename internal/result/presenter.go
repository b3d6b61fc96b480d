// Package result shows the end-of-game outcome and guarantees the user sees
// it even when the primary surface fails to appear.
package result

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/msgcat"
	"github.com/park285/omok-client/internal/obslog"
)

type DismissReason int

const (
	DismissClose DismissReason = iota + 1
	DismissClickOutside
	DismissEscape
	DismissNewGame
)

func (r DismissReason) String() string {
	switch r {
	case DismissClose:
		return "close"
	case DismissClickOutside:
		return "click_outside"
	case DismissEscape:
		return "escape"
	case DismissNewGame:
		return "new_game"
	default:
		return "unknown"
	}
}

type State int

const (
	Hidden State = iota
	Shown
)

// Result is the classified outcome plus the rendered texts.
type Result struct {
	Outcome   domain.Outcome
	Winner    domain.Winner
	MoveCount int
	Icon      string
	Title     string
	Message   string
	Fallback  string
}

// Surface is the primary presentation. OnDismiss returns a func that removes
// the handler again.
type Surface interface {
	Show(r Result) error
	Hide()
	Visible() bool
	OnDismiss(fn func(DismissReason)) (unregister func())
}

// Notifier is the minimal channel that always reaches the user.
type Notifier interface {
	Notify(msg string)
}

type Presenter struct {
	surface  Surface
	notifier Notifier
	cat      *msgcat.Catalog
	grace    time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	gen        uint64
	unregister func()
	check      *time.Timer
	last       *Result
}

type Option func(*Presenter)

func WithGrace(d time.Duration) Option {
	return func(p *Presenter) {
		if d >= 0 {
			p.grace = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Presenter) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPresenter(surface Surface, notifier Notifier, cat *msgcat.Catalog, opts ...Option) *Presenter {
	p := &Presenter{
		surface:  surface,
		notifier: notifier,
		cat:      cat,
		grace:    500 * time.Millisecond,
		logger:   obslog.L(),
	}
	if p.cat == nil {
		p.cat = msgcat.MustDefault()
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Build classifies the outcome and renders its texts without showing anything.
func (p *Presenter) Build(winner domain.Winner, user, ai domain.Symbol, moveCount int) Result {
	outcome := domain.Classify(winner, user, ai)
	data := map[string]any{"Winner": string(winner), "Moves": moveCount}
	key := "result." + string(outcome)

	r := Result{Outcome: outcome, Winner: winner, MoveCount: moveCount}
	switch outcome {
	case domain.OutcomeUserWin, domain.OutcomeAIWin:
		r.Icon = symbolIcon(domain.Symbol(winner))
	default:
		r.Icon = p.cat.Text(key+".icon", data)
	}
	r.Title = p.cat.Text(key+".title", data)
	r.Message = p.cat.Text(key+".message", data) + p.cat.Text("result.moves", data)
	r.Fallback = p.cat.Text("fallback."+string(outcome), data) + p.cat.Text("result.moves", data)
	return r
}

// Present shows the outcome. If the surface cannot be shown or is not visible
// after the grace delay, the fallback text goes through the notifier instead.
func (p *Presenter) Present(winner domain.Winner, user, ai domain.Symbol, moveCount int) Result {
	r := p.Build(winner, user, ai, moveCount)

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.stopCheckLocked()
	if p.unregister != nil {
		p.unregister()
	}
	p.unregister = p.surface.OnDismiss(func(reason DismissReason) { p.dismiss(gen, reason) })
	p.last = &r
	p.state = Shown
	p.mu.Unlock()

	if err := p.surface.Show(r); err != nil {
		p.fallback(gen, r, err)
		return r
	}
	p.mu.Lock()
	if p.gen == gen {
		p.check = time.AfterFunc(p.grace, func() { p.verify(gen, r) })
	}
	p.mu.Unlock()
	return r
}

// Dismiss hides the surface. Starting a new game uses DismissNewGame.
func (p *Presenter) Dismiss(reason DismissReason) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	p.dismiss(gen, reason)
}

func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the most recently presented result.
func (p *Presenter) Last() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Result{}, false
	}
	return *p.last, true
}

func (p *Presenter) dismiss(gen uint64, reason DismissReason) {
	p.mu.Lock()
	if p.gen != gen || p.state == Hidden {
		p.mu.Unlock()
		return
	}
	p.state = Hidden
	p.stopCheckLocked()
	if p.unregister != nil {
		p.unregister()
		p.unregister = nil
	}
	p.mu.Unlock()

	p.surface.Hide()
	p.logger.Debug("result_dismissed", zap.String("reason", reason.String()))
}

func (p *Presenter) verify(gen uint64, r Result) {
	p.mu.Lock()
	current := p.gen == gen && p.state == Shown
	p.mu.Unlock()
	if !current || p.surface.Visible() {
		return
	}
	p.fallback(gen, r, errors.New("surface not visible after grace"))
}

func (p *Presenter) fallback(gen uint64, r Result, cause error) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.state = Hidden
	p.stopCheckLocked()
	if p.unregister != nil {
		p.unregister()
		p.unregister = nil
	}
	p.mu.Unlock()

	p.logger.Warn("result_fallback",
		zap.Error(errors.Join(domain.ErrPresentationFallback, cause)),
		zap.String("outcome", string(r.Outcome)),
	)
	p.notifier.Notify(r.Fallback)
}

func (p *Presenter) stopCheckLocked() {
	if p.check != nil {
		p.check.Stop()
		p.check = nil
	}
}

func symbolIcon(s domain.Symbol) string {
	if s == domain.SymbolO {
		return "⭕"
	}
	return "❌"
}
