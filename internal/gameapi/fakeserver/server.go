// Package fakeserver is a scripted stand-in for the game server used by tests.
package fakeserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"github.com/park285/omok-client/internal/domain"
)

const (
	NewGame   = "new_game"
	MakeMove  = "make_move"
	AIMove    = "ai_move"
	GameState = "game_state"
)

// Reply is one scripted answer. Body is JSON encoded unless Raw is set.
// When Wait is non-nil the handler blocks on it before answering.
type Reply struct {
	Status int
	Body   any
	Raw    string
	Wait   <-chan struct{}
}

type Server struct {
	*httptest.Server

	mu      sync.Mutex
	calls   map[string]int
	bodies  map[string][]json.RawMessage
	replies map[string][]Reply
}

func New() *Server {
	s := &Server{
		calls:   make(map[string]int),
		bodies:  make(map[string][]json.RawMessage),
		replies: make(map[string][]Reply),
	}
	r := mux.NewRouter()
	r.HandleFunc("/api/new_game", s.handle(NewGame)).Methods(http.MethodPost)
	r.HandleFunc("/api/make_move", s.handle(MakeMove)).Methods(http.MethodPost)
	r.HandleFunc("/api/ai_move", s.handle(AIMove)).Methods(http.MethodPost)
	r.HandleFunc("/api/game_state", s.handle(GameState)).Methods(http.MethodGet)
	s.Server = httptest.NewServer(r)
	return s
}

// Enqueue appends scripted replies for an endpoint. The last reply repeats
// once the queue is down to one entry.
func (s *Server) Enqueue(op string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[op] = append(s.replies[op], replies...)
}

func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls counts requests across all endpoints.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Bodies returns the request bodies received for an endpoint.
func (s *Server) Bodies(op string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.bodies[op]...)
}

func (s *Server) handle(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls[op]++
		s.bodies[op] = append(s.bodies[op], json.RawMessage(body))
		var reply Reply
		switch q := s.replies[op]; len(q) {
		case 0:
			reply = Reply{Body: Fail("unscripted " + op)}
		case 1:
			reply = q[0]
		default:
			reply = q[0]
			s.replies[op] = q[1:]
		}
		s.mu.Unlock()

		if reply.Wait != nil {
			<-reply.Wait
		}
		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if reply.Raw != "" {
			_, _ = io.WriteString(w, reply.Raw)
			return
		}
		_ = json.NewEncoder(w).Encode(reply.Body)
	}
}

// Board builds a wire board with the given stones; everything else is '.'.
func Board(stones map[domain.Pos]string) [][]string {
	b := make([][]string, domain.Size)
	for r := range b {
		b[r] = make([]string, domain.Size)
		for c := range b[r] {
			b[r][c] = "."
		}
	}
	for p, v := range stones {
		b[p.Row][p.Col] = v
	}
	return b
}

func Fail(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

// Started is a new_game payload.
func Started(user domain.Symbol, current domain.Symbol, stones map[domain.Pos]string, aiMove *domain.Pos) map[string]any {
	m := map[string]any{
		"success":        true,
		"user_symbol":    string(user),
		"ai_symbol":      string(user.Other()),
		"current_player": string(current),
		"board":          Board(stones),
		"move_count":     len(stones),
	}
	if aiMove != nil {
		m["ai_move"] = []int{aiMove.Row, aiMove.Col}
	}
	return m
}

// Moved is a make_move / ai_move payload.
func Moved(current domain.Symbol, stones map[domain.Pos]string, aiMove *domain.Pos) map[string]any {
	m := map[string]any{
		"success":        true,
		"current_player": string(current),
		"board":          Board(stones),
		"move_count":     len(stones),
		"game_over":      false,
	}
	if aiMove != nil {
		m["ai_move"] = []int{aiMove.Row, aiMove.Col}
	}
	return m
}

// Finished is a terminal make_move / ai_move payload. An empty winner is
// encoded as null, which is how the server reports a draw on a full board.
func Finished(winner string, stones map[domain.Pos]string) map[string]any {
	m := map[string]any{
		"success":    true,
		"board":      Board(stones),
		"move_count": len(stones),
		"game_over":  true,
		"winner":     nil,
	}
	if winner != "" {
		m["winner"] = winner
	}
	return m
}
