package entity

import "strings"

const BoardSize = 8

// PassPoint is returned by bots that have nothing to play.
var PassPoint = Point{Row: -1, Col: -1}

type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Point) IsValid() bool {
	return inBounds(that.Row, that.Col)
}

func (that Point) IsPass() bool {
	return that == PassPoint
}

func inBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// Board is a value type, assigning it makes an independent copy.
type Board [BoardSize][BoardSize]Stone

// NewBoard - returns the standard opening position.
func NewBoard() Board {
	var board Board

	board[3][3] = White
	board[3][4] = Black
	board[4][3] = Black
	board[4][4] = White

	return board
}

func (that *Board) At(p Point) Stone {
	return that[p.Row][p.Col]
}

func (that *Board) Set(p Point, stone Stone) {
	that[p.Row][p.Col] = stone
}

// Count - full-board tally of the given stone.
func (that *Board) Count(stone Stone) int {
	count := 0
	for row := range that {
		for col := range that[row] {
			if that[row][col] == stone {
				count++
			}
		}
	}

	return count
}

// Cells - board as plain integers, 0 empty, 1 black, 2 white.
func (that *Board) Cells() [][]int {
	cells := make([][]int, BoardSize)
	for row := range that {
		cells[row] = make([]int, BoardSize)
		for col := range that[row] {
			cells[row][col] = int(that[row][col])
		}
	}

	return cells
}

func (that Board) String() string {
	var sb strings.Builder

	sb.WriteString("  0 1 2 3 4 5 6 7\n")
	for row := range that {
		sb.WriteByte(byte('0' + row))
		sb.WriteByte(' ')
		for col := range that[row] {
			switch that[row][col] {
			case Black:
				sb.WriteString("● ")
			case White:
				sb.WriteString("○ ")
			default:
				sb.WriteString(". ")
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
