// Package protocol implements the line-delimited wire protocol spoken
// between the tilez server and its clients.
//
// Every message is a single newline-terminated UTF-8 line with
// space-separated fields.
//
// Client → server:
//
//	PLACE <x> <y> <radius>
//	SHOOT <index> <dx> <dy> <force>
//
// Server → client:
//
//	WAITING
//	READY <player_id>
//	YOUR_TURN
//	OPPONENT_TURN
//	OK
//	ERROR <reason>
//	STATE <n> [<owner> <x> <y> <radius>]×n
//	DISCONNECTED
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command keywords (client → server).
const (
	KeywordPlace = "PLACE"
	KeywordShoot = "SHOOT"
)

// Event keywords (server → client).
const (
	KeywordWaiting      = "WAITING"
	KeywordReady        = "READY"
	KeywordYourTurn     = "YOUR_TURN"
	KeywordOpponentTurn = "OPPONENT_TURN"
	KeywordOK           = "OK"
	KeywordError        = "ERROR"
	KeywordState        = "STATE"
	KeywordDisconnected = "DISCONNECTED"
)

var (
	ErrUnknownKeyword = errors.New("unknown keyword")
	ErrMalformedLine  = errors.New("malformed line")
)

// Piece is the wire representation of one board piece.
type Piece struct {
	Owner  uint8
	X      float64
	Y      float64
	Radius float64
}

// Command is a decoded client intent.
type Command interface {
	isCommand()
}

// PlaceCommand asks to put a new piece on the board.
type PlaceCommand struct {
	X, Y, Radius float64
}

// ShootCommand asks to propel the piece at Index along (DX,DY).
type ShootCommand struct {
	Index         int
	DX, DY, Force float64
}

func (PlaceCommand) isCommand() {}
func (ShootCommand) isCommand() {}

// ParseCommand decodes one client line. The caller decides what to do with
// a failure; the protocol itself never answers unparseable input.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}
	switch fields[0] {
	case KeywordPlace:
		if len(fields) != 4 {
			return nil, fmt.Errorf("%w: PLACE wants 3 fields, got %d", ErrMalformedLine, len(fields)-1)
		}
		var cmd PlaceCommand
		var err error
		if cmd.X, err = parseFloat(fields[1]); err != nil {
			return nil, err
		}
		if cmd.Y, err = parseFloat(fields[2]); err != nil {
			return nil, err
		}
		if cmd.Radius, err = parseFloat(fields[3]); err != nil {
			return nil, err
		}
		return cmd, nil

	case KeywordShoot:
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: SHOOT wants 4 fields, got %d", ErrMalformedLine, len(fields)-1)
		}
		var cmd ShootCommand
		var err error
		if cmd.Index, err = parseIndex(fields[1]); err != nil {
			return nil, err
		}
		if cmd.DX, err = parseFloat(fields[2]); err != nil {
			return nil, err
		}
		if cmd.DY, err = parseFloat(fields[3]); err != nil {
			return nil, err
		}
		if cmd.Force, err = parseFloat(fields[4]); err != nil {
			return nil, err
		}
		return cmd, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyword, fields[0])
	}
}

// Event is a decoded server message.
type Event interface {
	isEvent()
}

type (
	// Waiting tells the first peer the server is holding for an opponent.
	Waiting struct{}

	// Ready announces the start of a game and the receiver's seat.
	Ready struct {
		PlayerID uint8
	}

	// YourTurn tells the receiver it may move.
	YourTurn struct{}

	// OpponentTurn tells the receiver to hold.
	OpponentTurn struct{}

	// OK acknowledges an accepted move.
	OK struct{}

	// Error rejects a move, state unchanged.
	Error struct {
		Reason string
	}

	// State is the full board broadcast after every accepted move.
	State struct {
		Pieces []Piece
	}

	// Disconnected tells the surviving peer the game is over.
	Disconnected struct{}
)

func (Waiting) isEvent()      {}
func (Ready) isEvent()        {}
func (YourTurn) isEvent()     {}
func (OpponentTurn) isEvent() {}
func (OK) isEvent()           {}
func (Error) isEvent()        {}
func (State) isEvent()        {}
func (Disconnected) isEvent() {}

// Encode renders ev as one wire line without the trailing newline.
// State coordinates render with fixed 3-decimal precision to bound the line
// length of large boards.
func Encode(ev Event) string {
	switch e := ev.(type) {
	case Waiting:
		return KeywordWaiting
	case Ready:
		return fmt.Sprintf("%s %d", KeywordReady, e.PlayerID)
	case YourTurn:
		return KeywordYourTurn
	case OpponentTurn:
		return KeywordOpponentTurn
	case OK:
		return KeywordOK
	case Error:
		return KeywordError + " " + e.Reason
	case State:
		var b strings.Builder
		fmt.Fprintf(&b, "%s %d", KeywordState, len(e.Pieces))
		for _, p := range e.Pieces {
			fmt.Fprintf(&b, " %d %.3f %.3f %.3f", p.Owner, p.X, p.Y, p.Radius)
		}
		return b.String()
	case Disconnected:
		return KeywordDisconnected
	default:
		panic(fmt.Sprintf("protocol: unhandled event type %T", ev))
	}
}

// ParseEvent decodes one server line. Used by clients.
func ParseEvent(line string) (Event, error) {
	keyword, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch keyword {
	case KeywordWaiting:
		return Waiting{}, nil
	case KeywordReady:
		id, err := parsePlayerID(rest)
		if err != nil {
			return nil, err
		}
		return Ready{PlayerID: id}, nil
	case KeywordYourTurn:
		return YourTurn{}, nil
	case KeywordOpponentTurn:
		return OpponentTurn{}, nil
	case KeywordOK:
		return OK{}, nil
	case KeywordError:
		return Error{Reason: rest}, nil
	case KeywordState:
		return parseState(rest)
	case KeywordDisconnected:
		return Disconnected{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyword, keyword)
	}
}

func parseState(rest string) (Event, error) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: STATE without piece count", ErrMalformedLine)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: bad piece count %q", ErrMalformedLine, fields[0])
	}
	if len(fields) != 1+n*4 {
		return nil, fmt.Errorf("%w: STATE announces %d pieces but carries %d fields", ErrMalformedLine, n, len(fields)-1)
	}
	pieces := make([]Piece, 0, n)
	for i := 0; i < n; i++ {
		f := fields[1+i*4:]
		owner, err := parsePlayerID(f[0])
		if err != nil {
			return nil, err
		}
		p := Piece{Owner: owner}
		if p.X, err = parseFloat(f[1]); err != nil {
			return nil, err
		}
		if p.Y, err = parseFloat(f[2]); err != nil {
			return nil, err
		}
		if p.Radius, err = parseFloat(f[3]); err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	return State{Pieces: pieces}, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrMalformedLine, s)
	}
	return v, nil
}

func parseIndex(s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: bad index %q", ErrMalformedLine, s)
	}
	return int(v), nil
}

func parsePlayerID(s string) (uint8, error) {
	switch s {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	}
	return 0, fmt.Errorf("%w: bad player id %q", ErrMalformedLine, s)
}
