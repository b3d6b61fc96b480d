package termpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/omok-client/internal/board"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/result"
	"github.com/park285/omok-client/internal/session"
)

// FormatBoard draws the grid with column letters on top and 1-based row
// numbers on the left. The last move is wrapped in brackets.
func FormatBoard(grid board.Grid, last *domain.Pos) string {
	var b strings.Builder
	b.WriteString("    ")
	for c := 0; c < domain.Size; c++ {
		fmt.Fprintf(&b, " %c ", 'A'+c)
	}
	b.WriteByte('\n')
	for r := 0; r < domain.Size; r++ {
		fmt.Fprintf(&b, "%3d ", r+1)
		for c := 0; c < domain.Size; c++ {
			tok := grid[r][c].Token()
			if last != nil && last.Row == r && last.Col == c {
				fmt.Fprintf(&b, "[%s]", tok)
				continue
			}
			fmt.Fprintf(&b, " %s ", tok)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func FormatInfo(info session.Info) string {
	if info.UserSymbol == "" {
		return "No game"
	}
	turn := string(info.CurrentPlayer)
	if info.GameOver {
		turn = "-"
	}
	return fmt.Sprintf("You: %s | AI: %s | Turn: %s | Moves: %d", info.UserSymbol, info.AISymbol, turn, info.MoveCount)
}

// FormatProgress renders a fixed width bar, e.g. "[#####.....]  50% phrase".
func FormatProgress(progress float64, phrase string) string {
	const width = 20
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	filled := int(progress / 100 * width)
	return fmt.Sprintf("[%s%s] %3d%% %s", strings.Repeat("#", filled), strings.Repeat(".", width-filled), int(progress), phrase)
}

func FormatResult(r result.Result) string {
	var b strings.Builder
	line := strings.Repeat("=", 40)
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "%s %s\n", r.Icon, r.Title)
	b.WriteString(r.Message + "\n")
	b.WriteString("(close / esc / new)\n")
	b.WriteString(line + "\n")
	return b.String()
}
