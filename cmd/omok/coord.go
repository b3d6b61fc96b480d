package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/park285/omok-client/internal/domain"
)

// parseCoord accepts a board label ("H8") or 1-based "row col".
// Range checking is left to the submitter so it reports the proper status.
func parseCoord(args []string) (domain.Pos, error) {
	switch len(args) {
	case 1:
		s := strings.ToUpper(strings.TrimSpace(args[0]))
		if len(s) < 2 || !unicode.IsLetter(rune(s[0])) {
			return domain.Pos{}, fmt.Errorf("bad coordinate %q", args[0])
		}
		row, err := strconv.Atoi(s[1:])
		if err != nil {
			return domain.Pos{}, fmt.Errorf("bad coordinate %q", args[0])
		}
		return domain.Pos{Row: row - 1, Col: int(s[0] - 'A')}, nil
	case 2:
		row, err1 := strconv.Atoi(args[0])
		col, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return domain.Pos{}, fmt.Errorf("bad coordinate %q %q", args[0], args[1])
		}
		return domain.Pos{Row: row - 1, Col: col - 1}, nil
	default:
		return domain.Pos{}, fmt.Errorf("usage: move H8 | move <row> <col>")
	}
}
