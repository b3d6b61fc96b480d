// Package history records finished games and answers win/loss questions
// about them.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/park285/omok-client/internal/domain"
)

// Stats aggregates finished games from the local player's point of view.
type Stats struct {
	Games  int64 `json:"games"`
	Wins   int64 `json:"wins"`
	Losses int64 `json:"losses"`
	Draws  int64 `json:"draws"`
	Other  int64 `json:"other"`
}

func (s *Stats) add(o domain.Outcome, n int64) {
	s.Games += n
	switch o {
	case domain.OutcomeUserWin:
		s.Wins += n
	case domain.OutcomeAIWin:
		s.Losses += n
	case domain.OutcomeDraw:
		s.Draws += n
	default:
		s.Other += n
	}
}

// Sink accepts finished games.
type Sink interface {
	Record(ctx context.Context, g domain.GameSummary) error
}

// Store is a Sink that can also be queried.
type Store interface {
	Sink
	Recent(ctx context.Context, limit int) ([]domain.GameSummary, error)
	Stats(ctx context.Context) (Stats, error)
}

// Recorder writes every game to the primary store and all extra sinks.
// Queries go to the primary store only.
type Recorder struct {
	primary Store
	sinks   []Sink
}

func NewRecorder(primary Store, sinks ...Sink) *Recorder {
	if primary == nil {
		primary = NewMemoryStore(0)
	}
	return &Recorder{primary: primary, sinks: sinks}
}

// Record fans out to every destination; one failing sink does not stop the
// others.
func (r *Recorder) Record(ctx context.Context, g domain.GameSummary) error {
	errs := []error{r.primary.Record(ctx, g)}
	for _, s := range r.sinks {
		errs = append(errs, s.Record(ctx, g))
	}
	return errors.Join(errs...)
}

func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.GameSummary, error) {
	return r.primary.Recent(ctx, limit)
}

func (r *Recorder) Stats(ctx context.Context) (Stats, error) { return r.primary.Stats(ctx) }

// MemoryStore keeps the most recent games in process.
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	games []domain.GameSummary // newest first
	stats Stats
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 50
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) Record(_ context.Context, g domain.GameSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append([]domain.GameSummary{g}, m.games...)
	if len(m.games) > m.limit {
		m.games = m.games[:m.limit]
	}
	m.stats.add(g.Outcome, 1)
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]domain.GameSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.games) {
		limit = len(m.games)
	}
	return append([]domain.GameSummary(nil), m.games[:limit]...), nil
}

func (m *MemoryStore) Stats(context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats, nil
}
