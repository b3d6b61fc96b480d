// Package board holds the local mirror of the server's board.
package board

import (
	"sync"

	"github.com/park285/omok-client/internal/domain"
)

// Grid is a row-major copy of the board.
type Grid [domain.Size][domain.Size]domain.Cell

// Occupied counts non-empty cells.
func (g Grid) Occupied() int {
	n := 0
	for r := range g {
		for c := range g[r] {
			if g[r][c] != domain.Empty {
				n++
			}
		}
	}
	return n
}

// Raw is a board as decoded from JSON: rows of arbitrary cell values.
type Raw [][]any

// Store is the single writer of the board mirror. Reads are safe from any
// goroutine.
type Store struct {
	mu   sync.RWMutex
	grid Grid
}

func NewStore() *Store { return &Store{} }

// Normalize validates dimensions and maps every cell to a domain.Cell.
func Normalize(raw Raw) (Grid, error) {
	var g Grid
	if len(raw) != domain.Size {
		return g, &domain.MalformedBoardError{Rows: len(raw), Row: -1}
	}
	for r, row := range raw {
		if len(row) != domain.Size {
			return g, &domain.MalformedBoardError{Rows: len(raw), Row: r, Cols: len(row)}
		}
		for c, v := range row {
			g[r][c] = domain.NormalizeCell(v)
		}
	}
	return g, nil
}

// Apply replaces the mirror with the normalized form of raw and returns the
// positions whose value changed. A malformed board leaves the mirror as is.
func (s *Store) Apply(raw Raw) ([]domain.Pos, error) {
	next, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []domain.Pos
	for r := range next {
		for c := range next[r] {
			if s.grid[r][c] != next[r][c] {
				changed = append(changed, domain.Pos{Row: r, Col: c})
				s.grid[r][c] = next[r][c]
			}
		}
	}
	return changed, nil
}

// Reset clears the mirror, returning the positions that were occupied.
func (s *Store) Reset() []domain.Pos {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []domain.Pos
	for r := range s.grid {
		for c := range s.grid[r] {
			if s.grid[r][c] != domain.Empty {
				changed = append(changed, domain.Pos{Row: r, Col: c})
				s.grid[r][c] = domain.Empty
			}
		}
	}
	return changed
}

func (s *Store) CellAt(row, col int) (domain.Cell, error) {
	if !(domain.Pos{Row: row, Col: col}).InRange() {
		return domain.Empty, &domain.OutOfRangeError{Row: row, Col: col}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid[row][col], nil
}

// Snapshot returns a copy of the mirror.
func (s *Store) Snapshot() Grid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid
}

func (s *Store) Occupied() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.Occupied()
}
