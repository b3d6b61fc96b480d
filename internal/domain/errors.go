package domain

import (
	"errors"
	"fmt"
)

// ValidationReason identifies which local precondition rejected a move.
type ValidationReason string

const (
	ReasonOutOfRange   ValidationReason = "out_of_range"
	ReasonGameOver     ValidationReason = "game_over"
	ReasonNotYourTurn  ValidationReason = "not_your_turn"
	ReasonCellOccupied ValidationReason = "cell_occupied"
	ReasonNoSession    ValidationReason = "no_session"
	ReasonNotAITurn    ValidationReason = "not_ai_turn"
)

// ValidationError is a locally detected rejection. It never reaches the network.
type ValidationError struct {
	Reason ValidationReason
	Pos    Pos
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("move rejected: %s at %s", e.Reason, e.Pos)
}

// TransportError covers network failures and undecodable payloads.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a success:false response with a server supplied reason.
type ProtocolError struct {
	Op      string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Op + ": server rejected request"
	}
	return e.Message
}

// SessionStateError reports that the server has no initialised game.
type SessionStateError struct {
	Op      string
	Message string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s: session not initialized: %s", e.Op, e.Message)
}

// MalformedBoardError is returned for boards with the wrong dimensions.
type MalformedBoardError struct {
	Rows int
	Row  int // first offending row, -1 when the row count is wrong
	Cols int
}

func (e *MalformedBoardError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("malformed board: %d rows, want %d", e.Rows, Size)
	}
	return fmt.Sprintf("malformed board: row %d has %d cells, want %d", e.Row, e.Cols, Size)
}

// OutOfRangeError is returned by cell reads outside the grid.
type OutOfRangeError struct {
	Row int
	Col int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("position (%d,%d) out of range [0,%d]", e.Row, e.Col, Size-1)
}

var (
	// ErrBusy rejects a submission while another one is outstanding.
	ErrBusy = errors.New("another submission is in flight")
	// ErrPresentationFallback marks a result that had to use the fallback notifier.
	ErrPresentationFallback = errors.New("result surface not visible")
	// ErrStaleSession is returned when a response arrives for a replaced session.
	ErrStaleSession = errors.New("session replaced while request was in flight")
	// ErrInvalidSymbol rejects anything other than X or O.
	ErrInvalidSymbol = errors.New("symbol must be X or O")
)

// IsValidation reports whether err is a ValidationError with the given reason.
func IsValidation(err error, reason ValidationReason) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == reason
}
