package service

import (
	"math"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

const DefaultSearchDepth = 4

// Bot picks a move for the side to move. An empty legal list yields entity.PassPoint.
type Bot interface {
	SelectMove(board entity.Board, turn entity.Stone, legal []entity.Point) entity.Point
}

// AlphaBetaBot - fixed depth minimax with alpha-beta pruning over material count.
type AlphaBetaBot struct {
	depth int
}

func NewAlphaBetaBot(depth int) *AlphaBetaBot {
	if depth < 1 {
		depth = DefaultSearchDepth
	}

	return &AlphaBetaBot{depth: depth}
}

func (that *AlphaBetaBot) Depth() int {
	return that.depth
}

// SelectMove - on equal scores the earliest move of legal wins.
func (that *AlphaBetaBot) SelectMove(board entity.Board, turn entity.Stone, legal []entity.Point) entity.Point {
	if len(legal) == 0 {
		return entity.PassPoint
	}

	best := math.MinInt
	bestMove := legal[0]

	for _, move := range legal {
		child := entity.FromBoardAndTurn(board, turn)
		if _, err := child.ApplyMove(move); err != nil {
			continue
		}

		score := that.search(child, that.depth-1, best, math.MaxInt, turn)
		if score > best {
			best = score
			bestMove = move
		}
	}

	return bestMove
}

func (that *AlphaBetaBot) search(state *entity.GameState, depth, alpha, beta int, me entity.Stone) int {
	if depth <= 0 || state.Turn == entity.Empty {
		return evaluate(&state.Board, me)
	}

	moves := state.LegalMoves()
	if len(moves) == 0 {
		child := state.Clone()
		child.Pass()

		return that.search(child, depth-1, alpha, beta, me)
	}

	if state.Turn == me {
		value := math.MinInt
		for _, move := range moves {
			child := state.Clone()
			if _, err := child.ApplyMove(move); err != nil {
				continue
			}

			value = max(value, that.search(child, depth-1, alpha, beta, me))
			alpha = max(alpha, value)
			if alpha >= beta {
				break
			}
		}

		return value
	}

	value := math.MaxInt
	for _, move := range moves {
		child := state.Clone()
		if _, err := child.ApplyMove(move); err != nil {
			continue
		}

		value = min(value, that.search(child, depth-1, alpha, beta, me))
		beta = min(beta, value)
		if alpha >= beta {
			break
		}
	}

	return value
}

// evaluate - own stones minus opponent stones.
func evaluate(board *entity.Board, me entity.Stone) int {
	return board.Count(me) - board.Count(me.Opponent())
}
