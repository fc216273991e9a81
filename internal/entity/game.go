package entity

import (
	"fmt"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

// directions order is NW, N, NE, W, E, SW, S, SE, clients animate flips in this order.
var directions = [8]Point{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// GameState holds the board and the side to move. Turn == Empty means the game is over.
type GameState struct {
	Board Board `json:"board"`
	Turn  Stone `json:"turn"`
}

func NewGameState() *GameState {
	return &GameState{
		Board: NewBoard(),
		Turn:  Black,
	}
}

// FromBoardAndTurn - builds a state from an arbitrary position, the board is copied.
func FromBoardAndTurn(board Board, turn Stone) *GameState {
	return &GameState{
		Board: board,
		Turn:  turn,
	}
}

// Clone - independent copy used by search.
func (that *GameState) Clone() *GameState {
	return FromBoardAndTurn(that.Board, that.Turn)
}

func (that *GameState) IsLegal(p Point) bool {
	return that.isLegalFor(p, that.Turn)
}

// LegalMoves - legal moves of the side to move in row-major order.
func (that *GameState) LegalMoves() []Point {
	return that.legalMovesFor(that.Turn)
}

func (that *GameState) HasAnyMove(stone Stone) bool {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if that.isLegalFor(Point{row, col}, stone) {
				return true
			}
		}
	}

	return false
}

// ApplyMove - places a stone for the side to move and returns flipped cells.
// On an illegal move the state is left untouched.
func (that *GameState) ApplyMove(p Point) ([]Point, error) {
	if !that.IsLegal(p) {
		return nil, fmt.Errorf("%w: (%d,%d)", apperror.ErrInvalidMove, p.Row, p.Col)
	}

	mover := that.Turn
	that.Board.Set(p, mover)

	flipped := make([]Point, 0, BoardSize)
	for _, dir := range directions {
		run := that.runLength(p, dir, mover)
		for step := 1; step <= run; step++ {
			cell := Point{Row: p.Row + dir.Row*step, Col: p.Col + dir.Col*step}
			that.Board.Set(cell, mover)
			flipped = append(flipped, cell)
		}
	}

	that.advanceTurn(mover)

	return flipped, nil
}

// Pass - skips the side to move without placing a stone.
func (that *GameState) Pass() {
	if that.Turn == Empty {
		return
	}

	that.advanceTurn(that.Turn)
}

// IsTerminal - reports whether nobody can move and who has more stones, Empty on a draw.
func (that *GameState) IsTerminal() (bool, Stone) {
	if that.Turn != Empty {
		return false, Empty
	}

	return true, that.Winner()
}

// Winner - color with strictly more stones on the board right now.
func (that *GameState) Winner() Stone {
	black, white := that.Board.Count(Black), that.Board.Count(White)

	switch {
	case black > white:
		return Black
	case white > black:
		return White
	default:
		return Empty
	}
}

func (that *GameState) advanceTurn(mover Stone) {
	switch opponent := mover.Opponent(); {
	case that.HasAnyMove(opponent):
		that.Turn = opponent
	case that.HasAnyMove(mover):
		that.Turn = mover
	default:
		that.Turn = Empty
	}
}

func (that *GameState) legalMovesFor(stone Stone) []Point {
	moves := make([]Point, 0, 16)
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			p := Point{Row: row, Col: col}
			if that.isLegalFor(p, stone) {
				moves = append(moves, p)
			}
		}
	}

	return moves
}

func (that *GameState) isLegalFor(p Point, stone Stone) bool {
	if stone == Empty || !p.IsValid() || that.Board.At(p) != Empty {
		return false
	}

	for _, dir := range directions {
		if that.runLength(p, dir, stone) > 0 {
			return true
		}
	}

	return false
}

// runLength - count of opponent stones next to p in dir that are closed by stone, 0 otherwise.
func (that *GameState) runLength(p, dir Point, stone Stone) int {
	opponent := stone.Opponent()
	count := 0

	for row, col := p.Row+dir.Row, p.Col+dir.Col; inBounds(row, col); row, col = row+dir.Row, col+dir.Col {
		switch that.Board[row][col] {
		case opponent:
			count++
		case stone:
			return count
		default:
			return 0
		}
	}

	return 0
}
