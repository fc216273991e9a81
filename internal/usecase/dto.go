package usecase

import "github.com/rocketscienceinc/othello-backend/internal/entity"

type JoinRequest struct {
	Name         string `json:"name"`
	MatchID      string `json:"matchId,omitempty"`
	IsObserver   bool   `json:"isObserver"`
	VsAI         bool   `json:"vsAI"`
	AILevel      int    `json:"aiLevel,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
}

const (
	StatusJoined  = "joined"
	StatusWaiting = "waiting"
)

type JoinResponse struct {
	Status        string `json:"status"`
	SessionID     string `json:"sessionId"`
	MatchID       string `json:"matchId"`
	AssignedColor int    `json:"assignedColor"`
	IsObserver    bool   `json:"isObserver"`
}

// StateResponse - board cells are 0 empty, 1 black, 2 white. Turn is 0 once the game is over.
type StateResponse struct {
	Board           [][]int        `json:"board"`
	Turn            int            `json:"turn"`
	LegalMoves      []entity.Point `json:"legalMoves"`
	IsFinished      bool           `json:"isFinished"`
	Winner          int            `json:"winner"`
	BlackPlayerName string         `json:"blackPlayerName"`
	WhitePlayerName string         `json:"whitePlayerName"`
}

type MoveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type MoveResponse struct {
	Success bool           `json:"success"`
	Move    entity.Point   `json:"move"`
	Flipped []entity.Point `json:"flipped"`
}
