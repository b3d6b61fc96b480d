package domain

import "fmt"

// Size is the board edge length.
const Size = 15

// Cell is the content of one board position.
type Cell uint8

const (
	Empty Cell = iota
	PlayerX
	PlayerO
)

// Token returns the wire token for the cell. Empty uses the server's '.' marker.
func (c Cell) Token() string {
	switch c {
	case PlayerX:
		return "X"
	case PlayerO:
		return "O"
	default:
		return "."
	}
}

func (c Cell) String() string { return c.Token() }

// NormalizeCell maps any raw board value to a Cell. Only "X" and "O" are
// recognised as player symbols; everything else is Empty.
func NormalizeCell(v any) Cell {
	s, ok := v.(string)
	if !ok {
		return Empty
	}
	switch s {
	case "X":
		return PlayerX
	case "O":
		return PlayerO
	default:
		return Empty
	}
}

// Symbol is a player's mark.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
)

// ParseSymbol accepts "x"/"X"/"o"/"O".
func ParseSymbol(s string) (Symbol, error) {
	switch s {
	case "X", "x":
		return SymbolX, nil
	case "O", "o":
		return SymbolO, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
}

func (s Symbol) Valid() bool { return s == SymbolX || s == SymbolO }

// Other returns the opposing symbol.
func (s Symbol) Other() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// Cell returns the board cell occupied by this symbol.
func (s Symbol) Cell() Cell {
	switch s {
	case SymbolX:
		return PlayerX
	case SymbolO:
		return PlayerO
	default:
		return Empty
	}
}

// Pos addresses a board position.
type Pos struct {
	Row int
	Col int
}

func (p Pos) InRange() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Label renders the position the way the board is labelled: column letter
// then 1-based row, e.g. (7,7) -> "H8".
func (p Pos) Label() string {
	return fmt.Sprintf("%c%d", rune('A'+p.Col), p.Row+1)
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.Row, p.Col) }

// Winner is the reported outcome of a finished game: a symbol, "draw", or
// empty while undecided.
type Winner string

const (
	WinnerNone Winner = ""
	WinnerDraw Winner = "draw"
)

func (w Winner) IsDraw() bool { return w == WinnerDraw }
