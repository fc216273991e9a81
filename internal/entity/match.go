package entity

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
)

const maxPlayers = 2

// MoveRecord is one applied move in the match log.
type MoveRecord struct {
	Color   Stone   `json:"color"`
	Move    Point   `json:"move"`
	Flipped []Point `json:"flipped,omitempty"`
}

// Match owns its game state and participants. Callers hold Lock while touching any field
// other than ID.
type Match struct {
	mu sync.Mutex

	ID        string
	State     *GameState
	Players   []Session
	Observers []Session

	// AIColor is Empty for head-to-head matches.
	AIColor Stone
	AILevel int

	Moves      []MoveRecord
	StartedAt  time.Time
	FinishedAt time.Time
}

func NewMatch(id string) *Match {
	return &Match{
		ID:        id,
		State:     NewGameState(),
		StartedAt: time.Now(),
	}
}

func (that *Match) Lock() {
	that.mu.Lock()
}

func (that *Match) Unlock() {
	that.mu.Unlock()
}

// AddPlayer - seats a player, first gets Black and second gets White.
func (that *Match) AddPlayer(sessionID, name, connectionID string) (Session, error) {
	if len(that.Players) >= maxPlayers {
		return Session{}, fmt.Errorf("%w: match %s", apperror.ErrMatchFull, that.ID)
	}

	color := Black
	if len(that.Players) == 1 {
		color = that.Players[0].Color.Opponent()
	}

	session := Session{
		ID:           sessionID,
		Name:         name,
		Color:        color,
		ConnectionID: connectionID,
	}
	that.Players = append(that.Players, session)

	return session, nil
}

func (that *Match) AddObserver(sessionID, name, connectionID string) Session {
	session := Session{
		ID:           sessionID,
		Name:         name,
		Color:        Empty,
		ConnectionID: connectionID,
	}
	that.Observers = append(that.Observers, session)

	return session
}

// BindAI - seats the computer opponent as the next player.
func (that *Match) BindAI(sessionID, name string, level int) (Session, error) {
	session, err := that.AddPlayer(sessionID, name, "")
	if err != nil {
		return Session{}, err
	}

	that.AIColor = session.Color
	that.AILevel = level

	return session, nil
}

func (that *Match) IsAIColor(color Stone) bool {
	return color != Empty && that.AIColor == color
}

// AITurn - true when the side to move is played by the computer.
func (that *Match) AITurn() bool {
	return that.IsAIColor(that.State.Turn)
}

func (that *Match) IsFinished() bool {
	return that.State.Turn == Empty
}

func (that *Match) IsFull() bool {
	return len(that.Players) >= maxPlayers
}

func (that *Match) FindPlayer(sessionID string) (Session, bool) {
	for _, player := range that.Players {
		if player.ID == sessionID {
			return player, true
		}
	}

	return Session{}, false
}

// FindSession - looks the session up among players and observers.
func (that *Match) FindSession(sessionID string) (Session, bool) {
	if player, ok := that.FindPlayer(sessionID); ok {
		return player, true
	}

	for _, observer := range that.Observers {
		if observer.ID == sessionID {
			return observer, true
		}
	}

	return Session{}, false
}

func (that *Match) PlayerName(color Stone) string {
	for _, player := range that.Players {
		if player.Color == color {
			return player.Name
		}
	}

	return ""
}

// Record - appends an applied move to the log.
func (that *Match) Record(color Stone, move Point, flipped []Point) {
	that.Moves = append(that.Moves, MoveRecord{
		Color:   color,
		Move:    move,
		Flipped: flipped,
	})
}
