// Package termpresenter renders the game to a terminal: the board, status
// lines, the AI progress bar and the result box.
package termpresenter

import (
	"fmt"
	"io"
	"sync"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/result"
	"github.com/park285/omok-client/internal/session"
)

// Presenter writes everything to out; the fallback notifier writes to alert.
type Presenter struct {
	mu    sync.Mutex
	out   io.Writer
	alert io.Writer

	grid    board.Grid
	last    *domain.Pos
	pending bool

	visible   bool
	handlerID int
	handler   func(result.DismissReason)
}

func NewPresenter(out, alert io.Writer) *Presenter {
	if alert == nil {
		alert = out
	}
	return &Presenter{out: out, alert: alert}
}

// Render stores the board; it is printed with the info line that follows,
// so the last-move marker is current.
func (p *Presenter) Render(grid board.Grid, changed []domain.Pos) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grid = grid
	if grid.Occupied() == 0 {
		p.last = nil
	}
	p.pending = p.pending || len(changed) > 0 || grid.Occupied() == 0
}

func (p *Presenter) Highlight(pos domain.Pos) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &pos
	p.pending = true
}

func (p *Presenter) ShowStatus(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "> %s\n", msg)
}

func (p *Presenter) ShowInfo(info session.Info) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		fmt.Fprint(p.out, FormatBoard(p.grid, p.last))
		if p.last != nil {
			fmt.Fprintf(p.out, "last move: %s\n", p.last.Label())
		}
		p.pending = false
	}
	fmt.Fprintln(p.out, FormatInfo(info))
}

// Board returns the last rendered grid and marker.
func (p *Presenter) Board() (board.Grid, *domain.Pos) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grid, p.last
}

func (p *Presenter) ShowThinking(progress float64, phrase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r\033[K%s", FormatProgress(progress, phrase))
}

func (p *Presenter) HideThinking() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, "\r\033[K")
}

// Show prints the result box. A failed write leaves the surface hidden.
func (p *Presenter) Show(r result.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.out, "\n"+FormatResult(r)); err != nil {
		p.visible = false
		return err
	}
	p.visible = true
	return nil
}

func (p *Presenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
}

func (p *Presenter) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// OnDismiss keeps a single handler; registering replaces the previous one.
func (p *Presenter) OnDismiss(fn func(result.DismissReason)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlerID++
	id := p.handlerID
	p.handler = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.handlerID == id {
			p.handler = nil
		}
	}
}

// Dismiss forwards a user action (close command, escape) to the handler.
func (p *Presenter) Dismiss(reason result.DismissReason) bool {
	p.mu.Lock()
	fn := p.handler
	visible := p.visible
	p.mu.Unlock()
	if fn == nil || !visible {
		return false
	}
	fn(reason)
	return true
}

func (p *Presenter) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.alert, "\a*** %s ***\n", msg)
}
