// Package thinking drives the cosmetic progress indicator shown while the AI
// move request is outstanding.
package thinking

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Cap keeps the bar short of complete until the real answer arrives.
	Cap          = 95.0
	minIncrement = 5.0
	maxIncrement = 20.0
	phraseChance = 0.3
)

// View receives progress updates. Calls come from the animator's goroutine.
type View interface {
	ShowThinking(progress float64, phrase string)
	HideThinking()
}

type Options struct {
	Tick    time.Duration
	Grace   time.Duration
	Phrases []string
	Rand    *rand.Rand
}

type Animator struct {
	view View
	opts Options

	// ctl serialises Start/Stop; mu guards the fields the ticker touches.
	ctl  sync.Mutex
	stop chan struct{}
	done chan struct{}
	hide *time.Timer

	mu       sync.Mutex
	rnd      *rand.Rand
	gen      uint64
	progress float64
	phrase   int

	tickers atomic.Int32
}

func New(view View, opts Options) *Animator {
	if opts.Tick <= 0 {
		opts.Tick = 200 * time.Millisecond
	}
	if opts.Grace < 0 {
		opts.Grace = 0
	}
	if len(opts.Phrases) == 0 {
		opts.Phrases = []string{"..."}
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Animator{view: view, opts: opts, rnd: rnd}
}

// Start resets progress and begins ticking. A running ticker is cancelled
// first, so there is never more than one.
func (a *Animator) Start() {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	a.cancel()
	if a.hide != nil {
		a.hide.Stop()
		a.hide = nil
	}

	a.mu.Lock()
	a.gen++
	a.progress = 0
	a.phrase = 0
	phrase := a.opts.Phrases[0]
	a.mu.Unlock()

	a.view.ShowThinking(0, phrase)
	a.stop, a.done = make(chan struct{}), make(chan struct{})
	a.tickers.Add(1)
	go a.run(a.stop, a.done)
}

// Stop shows completion, halts ticking and hides the view after the grace
// period.
func (a *Animator) Stop() {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	if a.stop == nil {
		return
	}
	a.cancel()

	a.mu.Lock()
	a.progress = 100
	gen := a.gen
	phrase := a.opts.Phrases[a.phrase]
	a.mu.Unlock()

	a.view.ShowThinking(100, phrase)
	a.hide = time.AfterFunc(a.opts.Grace, func() {
		a.mu.Lock()
		if a.gen != gen {
			a.mu.Unlock()
			return
		}
		a.progress = 0
		a.mu.Unlock()
		a.view.HideThinking()
	})
}

func (a *Animator) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// Running reports how many ticking goroutines are alive.
func (a *Animator) Running() int { return int(a.tickers.Load()) }

// cancel stops the current ticker and waits for it to exit. Caller holds ctl.
func (a *Animator) cancel() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
	a.stop, a.done = nil, nil
}

func (a *Animator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer a.tickers.Add(-1)
	t := time.NewTicker(a.opts.Tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			a.mu.Lock()
			a.progress += minIncrement + a.rnd.Float64()*(maxIncrement-minIncrement)
			if a.progress > Cap {
				a.progress = Cap
			}
			if a.rnd.Float64() < phraseChance {
				a.phrase = (a.phrase + 1) % len(a.opts.Phrases)
			}
			progress, phrase := a.progress, a.opts.Phrases[a.phrase]
			a.mu.Unlock()
			a.view.ShowThinking(progress, phrase)
		}
	}
}
