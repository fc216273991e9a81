package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/othello-backend/internal/usecase"
)

const (
	actionConnect   = "connect"
	actionSubscribe = "match:subscribe"
	actionJoin      = "match:join"
	actionMove      = "match:move"
	actionState     = "match:state"
	actionError     = "error"
)

type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ConnectPayload struct {
	ConnectionID string `json:"connectionId"`
}

type SubscribePayload struct {
	MatchID string `json:"matchId"`
}

// MovePayload - a move or state request sent over the socket instead of REST.
type MovePayload struct {
	SessionID string `json:"sessionId"`
	MatchID   string `json:"matchId"`
	usecase.MoveRequest
}

type ErrorPayload struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}
