package service

import (
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

// RandomBot - uniform choice among legal moves, used as a sparring partner.
type RandomBot struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomBot(rng *rand.Rand) *RandomBot {
	return &RandomBot{rng: rng}
}

func (that *RandomBot) SelectMove(_ entity.Board, _ entity.Stone, legal []entity.Point) entity.Point {
	if len(legal) == 0 {
		return entity.PassPoint
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return legal[that.rng.Intn(len(legal))]
}
