package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/internal/service"
)

type mockRegistry struct {
	mock.Mock
}

func (that *mockRegistry) JoinOrCreate(ctx context.Context, req service.JoinRequest) (*service.JoinOutcome, error) {
	args := that.Called(ctx, req)
	outcome, _ := args.Get(0).(*service.JoinOutcome)
	return outcome, args.Error(1)
}

func (that *mockRegistry) GetSnapshot(ctx context.Context, sessionID, matchID string) (*service.StateView, error) {
	args := that.Called(ctx, sessionID, matchID)
	view, _ := args.Get(0).(*service.StateView)
	return view, args.Error(1)
}

func (that *mockRegistry) ApplyPlayerMove(ctx context.Context, sessionID, matchID string, move entity.Point) (*service.MoveResult, error) {
	args := that.Called(ctx, sessionID, matchID, move)
	result, _ := args.Get(0).(*service.MoveResult)
	return result, args.Error(1)
}

func (that *mockRegistry) Subscribe(ctx context.Context, connectionID, matchID string) error {
	args := that.Called(ctx, connectionID, matchID)
	return args.Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (that *mockHistory) Recent(ctx context.Context, limit int) ([]repository.MatchResult, error) {
	args := that.Called(ctx, limit)
	results, _ := args.Get(0).([]repository.MatchResult)
	return results, args.Error(1)
}
