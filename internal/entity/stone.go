package entity

// Stone is the content of a board cell and also names the side to move.
type Stone int

const (
	Empty Stone = iota
	Black
	White
)

// Opponent - returns the other color, Empty stays Empty.
func (that Stone) Opponent() Stone {
	switch that {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (that Stone) String() string {
	switch that {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}
