package game

import "math"

// epsilon bounds how short a direction vector may be before normalizing it
// would divide by near-zero.
const epsilon = 1e-9

// ValidatePlacement checks that a circle at (x,y) with the given radius can
// join the board. Touching an existing piece exactly (distance == sum of
// radii) is allowed; any closer is an overlap.
func ValidatePlacement(pieces []Piece, x, y, radius float64) error {
	if radius <= 0 {
		return ErrNonPositiveRadius
	}
	for _, p := range pieces {
		if math.Hypot(p.X-x, p.Y-y) < p.Radius+radius {
			return ErrOverlap
		}
	}
	return nil
}

// ApplyShoot returns the position of p after being shot in direction (dx,dy)
// with the given force. The direction is normalized, so only its angle
// matters; force alone decides the travel distance.
func ApplyShoot(p Piece, dx, dy, force float64) (float64, float64, error) {
	length := math.Hypot(dx, dy)
	if length < epsilon {
		return 0, 0, ErrZeroDirection
	}
	return p.X + dx/length*force, p.Y + dy/length*force, nil
}
