package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/internal/service"
)

const (
	defaultPlayerName   = "Anonymous"
	maxNameLength       = 32
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type GameUseCase interface {
	Join(ctx context.Context, req JoinRequest) (*JoinResponse, error)
	GetState(ctx context.Context, sessionID, matchID string) (*StateResponse, error)
	MakeMove(ctx context.Context, sessionID, matchID string, req MoveRequest) (*MoveResponse, error)
	Subscribe(ctx context.Context, connectionID, matchID string) error
	History(ctx context.Context, limit int) ([]repository.MatchResult, error)
}

type matchRegistry interface {
	JoinOrCreate(ctx context.Context, req service.JoinRequest) (*service.JoinOutcome, error)
	GetSnapshot(ctx context.Context, sessionID, matchID string) (*service.StateView, error)
	ApplyPlayerMove(ctx context.Context, sessionID, matchID string, move entity.Point) (*service.MoveResult, error)
	Subscribe(ctx context.Context, connectionID, matchID string) error
}

type resultHistory interface {
	Recent(ctx context.Context, limit int) ([]repository.MatchResult, error)
}

type gameUseCase struct {
	registry matchRegistry
	history  resultHistory
}

// NewGameUseCase - history may be nil when the results archive is disabled.
func NewGameUseCase(registry matchRegistry, history resultHistory) GameUseCase {
	return &gameUseCase{
		registry: registry,
		history:  history,
	}
}

func (that *gameUseCase) Join(ctx context.Context, req JoinRequest) (*JoinResponse, error) {
	outcome, err := that.registry.JoinOrCreate(ctx, service.JoinRequest{
		Name:         normalizeName(req.Name),
		MatchID:      strings.TrimSpace(req.MatchID),
		IsObserver:   req.IsObserver,
		VsAI:         req.VsAI,
		AILevel:      req.AILevel,
		ConnectionID: req.ConnectionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join match: %w", err)
	}

	status := StatusJoined
	if outcome.Waiting {
		status = StatusWaiting
	}

	return &JoinResponse{
		Status:        status,
		SessionID:     outcome.SessionID,
		MatchID:       outcome.MatchID,
		AssignedColor: int(outcome.AssignedColor),
		IsObserver:    outcome.IsObserver,
	}, nil
}

func (that *gameUseCase) GetState(ctx context.Context, sessionID, matchID string) (*StateResponse, error) {
	view, err := that.registry.GetSnapshot(ctx, sessionID, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match state: %w", err)
	}

	winner := entity.Empty
	if view.IsFinished {
		winner = view.Winner
	}

	return &StateResponse{
		Board:           view.Board.Cells(),
		Turn:            int(view.Turn),
		LegalMoves:      view.LegalMoves,
		IsFinished:      view.IsFinished,
		Winner:          int(winner),
		BlackPlayerName: view.BlackPlayerName,
		WhitePlayerName: view.WhitePlayerName,
	}, nil
}

func (that *gameUseCase) MakeMove(ctx context.Context, sessionID, matchID string, req MoveRequest) (*MoveResponse, error) {
	move := entity.Point{Row: req.Row, Col: req.Col}

	result, err := that.registry.ApplyPlayerMove(ctx, sessionID, matchID, move)
	if err != nil {
		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	return &MoveResponse{
		Success: true,
		Move:    result.Move,
		Flipped: result.Flipped,
	}, nil
}

func (that *gameUseCase) Subscribe(ctx context.Context, connectionID, matchID string) error {
	if err := that.registry.Subscribe(ctx, connectionID, matchID); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	return nil
}

func (that *gameUseCase) History(ctx context.Context, limit int) ([]repository.MatchResult, error) {
	if that.history == nil {
		return []repository.MatchResult{}, nil
	}

	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	results, err := that.history.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return results, nil
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultPlayerName
	}

	if runes := []rune(name); len(runes) > maxNameLength {
		return string(runes[:maxNameLength])
	}

	return name
}
