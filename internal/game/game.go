// Package game holds the authoritative board for one running match: the
// ordered list of placed pieces and whose turn it is. A State is owned by
// exactly one session and is never shared, so none of it is synchronized.
package game

import "errors"

// PlayerSlot identifies one of the two seats in a match.
type PlayerSlot uint8

// Rejection reasons. The error text is what the offending client receives
// on the wire after "ERROR ", so it is phrased for humans.
var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNonPositiveRadius = errors.New("radius must be positive")
	ErrOverlap           = errors.New("overlaps an existing piece")
	ErrZeroDirection     = errors.New("direction vector must be non-zero")
	ErrIndexOutOfRange   = errors.New("piece index out of range")
	ErrNotOwner          = errors.New("that piece does not belong to you")
)

// Piece is one circular piece on the board. Its index in the piece list is
// assigned at placement, never changes, and is the identifier clients use
// to shoot it.
type Piece struct {
	Owner  PlayerSlot
	X      float64
	Y      float64
	Radius float64
}

// State is the authoritative game state. Slot 0 always moves first.
type State struct {
	pieces []Piece
	turn   PlayerSlot
}

func New() *State {
	return &State{}
}

// Turn returns the slot currently allowed to submit a mutating command.
func (s *State) Turn() PlayerSlot {
	return s.turn
}

// Place validates and appends a new piece for owner, then passes the turn.
func (s *State) Place(owner PlayerSlot, x, y, radius float64) error {
	if owner != s.turn {
		return ErrNotYourTurn
	}
	if err := ValidatePlacement(s.pieces, x, y, radius); err != nil {
		return err
	}
	s.pieces = append(s.pieces, Piece{Owner: owner, X: x, Y: y, Radius: radius})
	s.turn = 1 - s.turn
	return nil
}

// Shoot moves the piece at index along (dx,dy) scaled to force, then passes
// the turn. The piece must belong to owner. The resulting position is not
// re-checked for overlap; a shot may legally push pieces together.
func (s *State) Shoot(owner PlayerSlot, index int, dx, dy, force float64) error {
	if owner != s.turn {
		return ErrNotYourTurn
	}
	if index < 0 || index >= len(s.pieces) {
		return ErrIndexOutOfRange
	}
	if s.pieces[index].Owner != owner {
		return ErrNotOwner
	}
	x, y, err := ApplyShoot(s.pieces[index], dx, dy, force)
	if err != nil {
		return err
	}
	s.pieces[index].X = x
	s.pieces[index].Y = y
	s.turn = 1 - s.turn
	return nil
}

// Snapshot returns a full, order-preserving copy of the board, ready to be
// serialized into a STATE broadcast.
func (s *State) Snapshot() []Piece {
	out := make([]Piece, len(s.pieces))
	copy(out, s.pieces)
	return out
}
