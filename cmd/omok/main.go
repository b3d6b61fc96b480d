package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/omok-client/internal/clientbuilder"
	appcfg "github.com/park285/omok-client/internal/config"
	"github.com/park285/omok-client/internal/domain"
	"github.com/park285/omok-client/internal/obslog"
	"github.com/park285/omok-client/internal/result"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	deps, err := clientbuilder.New(cfg, logger, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("client init error: %v", err)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(helpText())
	deps.Terminal.ShowStatus(deps.Catalog.Text("status.choose_symbol", nil))

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(ctx, deps, logger, line); quit {
				return
			}
		}
	}
}

// handleCommand runs one input line and reports whether to exit. Errors are
// already shown as status lines by the engine.
func handleCommand(ctx context.Context, deps *clientbuilder.Deps, logger *zap.Logger, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		// a bare Enter is the terminal's click outside the result box
		deps.Terminal.Dismiss(result.DismissClickOutside)
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		fmt.Println(helpText())
	case "x", "o":
		sym, _ := domain.ParseSymbol(cmd)
		_ = deps.Controller.SelectSymbol(sym)
		_ = deps.Controller.StartGame(ctx, sym)
	case "new":
		if len(args) > 0 {
			sym, err := domain.ParseSymbol(args[0])
			if err != nil {
				fmt.Println("usage: new [x|o]")
				return false
			}
			_ = deps.Controller.SelectSymbol(sym)
		}
		_ = deps.Controller.NewGameFromResult(ctx)
	case "restart":
		deps.Controller.Restart()
	case "move", "m":
		pos, err := parseCoord(args)
		if err != nil {
			fmt.Println(err)
			return false
		}
		go func() {
			if err := deps.Submitter.SubmitMove(ctx, pos.Row, pos.Col); err != nil {
				logger.Debug("submit_failed", zap.Error(err))
			}
		}()
	case "ai":
		go func() { _ = deps.Submitter.RequestAIMove(ctx) }()
	case "state":
		_ = deps.Controller.Sync(ctx)
	case "close":
		deps.Terminal.Dismiss(result.DismissClose)
	case "esc":
		deps.Terminal.Dismiss(result.DismissEscape)
	case "snapshot":
		path, err := deps.Snapshot(ctx)
		if err != nil {
			fmt.Println("snapshot failed:", err)
			return false
		}
		fmt.Println("snapshot written to", path)
	case "stats":
		printStats(ctx, deps)
	case "quit", "exit":
		return true
	default:
		pos, err := parseCoord(parts)
		if err != nil {
			fmt.Println("Unknown command. Try 'help'.")
			return false
		}
		go func() { _ = deps.Submitter.SubmitMove(ctx, pos.Row, pos.Col) }()
	}
	return false
}

func printStats(ctx context.Context, deps *clientbuilder.Deps) {
	st, err := deps.History.Stats(ctx)
	if err != nil {
		fmt.Println("stats unavailable:", err)
		return
	}
	fmt.Printf("games %d | wins %d | losses %d | draws %d\n", st.Games, st.Wins, st.Losses, st.Draws)
	recent, err := deps.History.Recent(ctx, 5)
	if err != nil {
		fmt.Println("recent games unavailable:", err)
		return
	}
	for _, g := range recent {
		fmt.Printf("  %s  you=%s winner=%s moves=%d (%s)\n",
			g.EndedAt.Format("2006-01-02 15:04"), g.UserSymbol, winnerText(g.Winner), g.MoveCount, g.Duration().Round(1e9))
	}
}

func winnerText(w domain.Winner) string {
	if w == domain.WinnerNone {
		return string(domain.WinnerDraw)
	}
	return string(w)
}

func helpText() string {
	return strings.Join([]string{
		"Omok (15x15, five in a row)",
		"",
		"  x | o            start a game with that symbol",
		"  new [x|o]        new game (keeps your symbol)",
		"  restart          back to symbol selection",
		"  H8 | move H8     play at column H, row 8 (also: move 8 8)",
		"  ai               ask the AI to move when it is its turn",
		"  state            reload the game from the server",
		"  close | esc      close the result box (Enter also dismisses it)",
		"  snapshot         save the board as PNG",
		"  stats            wins, losses and recent games",
		"  quit",
	}, "\n")
}
