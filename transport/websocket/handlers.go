package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/othello-backend/internal/usecase"
)

var errMissingMatchID = errors.New("matchId is required")

func (that *Server) handleSubscribe(ctx context.Context, conn *connection, message *Message) error {
	var payload SubscribePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.MatchID == "" {
		return errMissingMatchID
	}

	if err := that.game.Subscribe(ctx, conn.id, payload.MatchID); err != nil {
		return err
	}

	return conn.reply(actionSubscribe, payload)
}

// handleJoin - joins with this socket as the delivery address for pairing and match events.
func (that *Server) handleJoin(ctx context.Context, conn *connection, message *Message) error {
	var req usecase.JoinRequest
	if err := json.Unmarshal(message.Payload, &req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	req.ConnectionID = conn.id

	resp, err := that.game.Join(ctx, req)
	if err != nil {
		return err
	}

	return conn.reply(actionJoin, resp)
}

func (that *Server) handleMove(ctx context.Context, conn *connection, message *Message) error {
	var payload MovePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	resp, err := that.game.MakeMove(ctx, payload.SessionID, payload.MatchID, payload.MoveRequest)
	if err != nil {
		return err
	}

	return conn.reply(actionMove, resp)
}

func (that *Server) handleState(ctx context.Context, conn *connection, message *Message) error {
	var payload MovePayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	resp, err := that.game.GetState(ctx, payload.SessionID, payload.MatchID)
	if err != nil {
		return err
	}

	return conn.reply(actionState, resp)
}
