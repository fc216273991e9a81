package notify

import (
	"context"
	"encoding/json"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

const (
	EventUpdate     = "update"
	EventGameOver   = "game:over"
	EventMatchFound = "match:found"
)

// Sink delivers match events to subscribed connections.
type Sink interface {
	Publish(ctx context.Context, topic, event string, payload any) error
	Subscribe(ctx context.Context, connectionID, topic string) error
}

// Event is what a subscriber receives, Payload is already JSON encoded.
type Event struct {
	Topic   string          `json:"topic"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// MatchTopic - topic shared by everybody watching a match.
func MatchTopic(matchID string) string {
	return "match:" + matchID
}

// ConnectionTopic - private topic of a single connection.
func ConnectionTopic(connectionID string) string {
	return "conn:" + connectionID
}

// UpdatePayload - one applied move, Flipped in the order stones turned over.
type UpdatePayload struct {
	MatchID string         `json:"matchId"`
	Color   entity.Stone   `json:"color"`
	Move    entity.Point   `json:"move"`
	Flipped []entity.Point `json:"flipped"`
	Turn    entity.Stone   `json:"turn"`
}

type GameOverPayload struct {
	MatchID    string       `json:"matchId"`
	Winner     entity.Stone `json:"winner"`
	BlackCount int          `json:"blackCount"`
	WhiteCount int          `json:"whiteCount"`
}

type MatchFoundPayload struct {
	MatchID       string       `json:"matchId"`
	SessionID     string       `json:"sessionId"`
	AssignedColor entity.Stone `json:"assignedColor"`
}
