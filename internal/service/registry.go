package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/notify"
	"github.com/rocketscienceinc/othello-backend/internal/pkg"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
)

const (
	maxIDAttempts = 16
	botName       = "Computer"
)

type matchRepository interface {
	Create(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	Contains(match *entity.Match) bool
}

type waitingQueue interface {
	Enqueue(entry repository.WaitingEntry)
	TakeFirst() (repository.WaitingEntry, bool)
}

type JoinRequest struct {
	Name       string
	MatchID    string
	IsObserver bool
	VsAI       bool
	// AILevel <= 0 uses the registry default.
	AILevel      int
	ConnectionID string
}

type JoinOutcome struct {
	SessionID     string       `json:"sessionId"`
	MatchID       string       `json:"matchId"`
	AssignedColor entity.Stone `json:"assignedColor"`
	IsObserver    bool         `json:"isObserver"`
	Waiting       bool         `json:"-"`
}

// StateView is a consistent snapshot of a match taken under its lock.
type StateView struct {
	Board           entity.Board   `json:"board"`
	Turn            entity.Stone   `json:"turn"`
	LegalMoves      []entity.Point `json:"legalMoves"`
	IsFinished      bool           `json:"isFinished"`
	Winner          entity.Stone   `json:"winner"`
	BlackPlayerName string         `json:"blackPlayerName"`
	WhitePlayerName string         `json:"whitePlayerName"`
}

// MatchRegistry - all live matches of this process and the random matchmaking queue.
type MatchRegistry struct {
	logger      *slog.Logger
	matches     matchRepository
	queue       waitingQueue
	sink        notify.Sink
	coordinator *MoveCoordinator
	aiLevel     int
}

func NewMatchRegistry(
	logger *slog.Logger,
	matches matchRepository,
	queue waitingQueue,
	sink notify.Sink,
	coordinator *MoveCoordinator,
	aiLevel int,
) *MatchRegistry {
	if aiLevel < 1 {
		aiLevel = DefaultSearchDepth
	}

	return &MatchRegistry{
		logger:      logger.With("component", "match-registry"),
		matches:     matches,
		queue:       queue,
		sink:        sink,
		coordinator: coordinator,
		aiLevel:     aiLevel,
	}
}

func (that *MatchRegistry) JoinOrCreate(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	var (
		outcome *JoinOutcome
		err     error
	)

	switch {
	case req.VsAI:
		outcome, err = that.joinVsAI(ctx, req)
	case req.MatchID != "":
		outcome, err = that.joinByID(ctx, req)
	default:
		outcome, err = that.joinRandom(ctx, req)
	}

	if err != nil {
		return nil, err
	}

	if req.ConnectionID != "" {
		if err = that.sink.Subscribe(ctx, req.ConnectionID, notify.MatchTopic(outcome.MatchID)); err != nil {
			that.logger.Warn("failed to subscribe connection to match",
				"matchID", outcome.MatchID, "connectionID", req.ConnectionID, "error", err)
		}
	}

	return outcome, nil
}

func (that *MatchRegistry) joinVsAI(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	level := req.AILevel
	if level < 1 {
		level = that.aiLevel
	}

	var human entity.Session
	match, err := that.createMatch(ctx, func(match *entity.Match) error {
		var err error
		if human, err = match.AddPlayer(pkg.GenerateSessionID(), req.Name, req.ConnectionID); err != nil {
			return err
		}

		_, err = match.BindAI(pkg.GenerateBotSessionID(), botName, level)

		return err
	})
	if err != nil {
		return nil, err
	}

	match.Lock()
	that.coordinator.Resume(match)
	match.Unlock()

	that.logger.Info("match against computer created", "matchID", match.ID, "sessionID", human.ID, "level", level)

	return newJoinOutcome(match.ID, human, false), nil
}

func (that *MatchRegistry) joinByID(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	for range maxIDAttempts {
		match, err := that.getOrCreate(ctx, req.MatchID)
		if err != nil {
			return nil, err
		}

		match.Lock()
		// evicted between lookup and lock, the id is free again
		if !that.matches.Contains(match) {
			match.Unlock()
			continue
		}

		if req.IsObserver {
			session := match.AddObserver(pkg.GenerateSessionID(), req.Name, req.ConnectionID)
			match.Unlock()

			return newJoinOutcome(match.ID, session, false), nil
		}

		session, err := match.AddPlayer(pkg.GenerateSessionID(), req.Name, req.ConnectionID)
		if err != nil {
			match.Unlock()
			return nil, err
		}

		var waiter entity.Session
		if match.IsFull() {
			waiter = match.Players[0]
		}
		match.Unlock()

		if waiter.ConnectionID != "" {
			that.announcePairing(ctx, match.ID, waiter)
		}

		return newJoinOutcome(match.ID, session, false), nil
	}

	return nil, fmt.Errorf("%w: %s", apperror.ErrMatchIDUnavailable, req.MatchID)
}

func (that *MatchRegistry) joinRandom(ctx context.Context, req JoinRequest) (*JoinOutcome, error) {
	if req.IsObserver {
		return nil, apperror.ErrMissingJoinTarget
	}

	for {
		entry, ok := that.queue.TakeFirst()
		if !ok {
			break
		}

		session, paired := that.pairWith(ctx, entry, req)
		if !paired {
			continue
		}

		that.announcePairing(ctx, entry.MatchID, entry.Session)
		if req.ConnectionID != "" {
			that.announcePairing(ctx, entry.MatchID, session)
		}

		that.logger.Info("players paired", "matchID", entry.MatchID,
			"black", entry.Session.ID, "white", session.ID)

		return newJoinOutcome(entry.MatchID, session, false), nil
	}

	if req.ConnectionID == "" {
		return nil, apperror.ErrMissingConnection
	}

	// the waiter learns about its opponent only through its private topic
	err := that.sink.Subscribe(ctx, req.ConnectionID, notify.ConnectionTopic(req.ConnectionID))
	if errors.Is(err, notify.ErrUnknownConnection) {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMissingConnection, err)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to check connection: %w", err)
	}

	var waiter entity.Session
	match, err := that.createMatch(ctx, func(match *entity.Match) error {
		var err error
		waiter, err = match.AddPlayer(pkg.GenerateSessionID(), req.Name, req.ConnectionID)

		return err
	})
	if err != nil {
		return nil, err
	}

	that.queue.Enqueue(repository.WaitingEntry{
		MatchID: match.ID,
		Session: waiter,
	})

	that.logger.Info("player is waiting for an opponent", "matchID", match.ID, "sessionID", waiter.ID)

	return newJoinOutcome(match.ID, waiter, true), nil
}

// pairWith - seats the joiner opposite a waiting player. Entries whose match is gone or full are dropped.
func (that *MatchRegistry) pairWith(ctx context.Context, entry repository.WaitingEntry, req JoinRequest) (entity.Session, bool) {
	match, err := that.matches.GetByID(ctx, entry.MatchID)
	if err != nil {
		return entity.Session{}, false
	}

	match.Lock()
	defer match.Unlock()

	if !that.matches.Contains(match) {
		return entity.Session{}, false
	}

	session, err := match.AddPlayer(pkg.GenerateSessionID(), req.Name, req.ConnectionID)
	if err != nil {
		return entity.Session{}, false
	}

	return session, true
}

func (that *MatchRegistry) announcePairing(ctx context.Context, matchID string, session entity.Session) {
	if session.ConnectionID == "" {
		return
	}

	err := that.sink.Publish(ctx, notify.ConnectionTopic(session.ConnectionID), notify.EventMatchFound, notify.MatchFoundPayload{
		MatchID:       matchID,
		SessionID:     session.ID,
		AssignedColor: session.Color,
	})
	if err != nil {
		that.logger.Error("failed to announce pairing", "matchID", matchID, "sessionID", session.ID, "error", err)
	}
}

func (that *MatchRegistry) GetSnapshot(ctx context.Context, sessionID, matchID string) (*StateView, error) {
	match, err := that.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	match.Lock()
	defer match.Unlock()

	if _, ok := match.FindSession(sessionID); !ok {
		return nil, fmt.Errorf("%w: session %s in match %s", apperror.ErrUnauthorized, sessionID, matchID)
	}

	state := match.State

	return &StateView{
		Board:           state.Board,
		Turn:            state.Turn,
		LegalMoves:      state.LegalMoves(),
		IsFinished:      match.IsFinished(),
		Winner:          state.Winner(),
		BlackPlayerName: match.PlayerName(entity.Black),
		WhitePlayerName: match.PlayerName(entity.White),
	}, nil
}

// ApplyPlayerMove - validates the caller and applies the move inside the match's exclusive section.
func (that *MatchRegistry) ApplyPlayerMove(ctx context.Context, sessionID, matchID string, move entity.Point) (*MoveResult, error) {
	match, err := that.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	match.Lock()
	defer match.Unlock()

	if !that.matches.Contains(match) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrMatchNotFound, matchID)
	}

	player, ok := match.FindPlayer(sessionID)
	if !ok || match.IsAIColor(player.Color) {
		return nil, fmt.Errorf("%w: session %s in match %s", apperror.ErrUnauthorized, sessionID, matchID)
	}

	if match.State.Turn != player.Color {
		return nil, apperror.ErrNotYourTurn
	}

	result, err := that.coordinator.ApplyHuman(ctx, match, move)
	if err != nil {
		return nil, err
	}

	that.logger.Debug("move applied", "matchID", matchID, "sessionID", sessionID,
		"row", move.Row, "col", move.Col, "flipped", len(result.Flipped))

	return result, nil
}

// Subscribe - adds a connection to the match's notification group.
func (that *MatchRegistry) Subscribe(ctx context.Context, connectionID, matchID string) error {
	if _, err := that.matches.GetByID(ctx, matchID); err != nil {
		return err
	}

	if err := that.sink.Subscribe(ctx, connectionID, notify.MatchTopic(matchID)); err != nil {
		return fmt.Errorf("failed to subscribe to match: %w", err)
	}

	return nil
}

func (that *MatchRegistry) Close() {
	that.coordinator.Close()
}

// createMatch - registers a new match under a fresh id once setup has seated its players.
func (that *MatchRegistry) createMatch(ctx context.Context, setup func(match *entity.Match) error) (*entity.Match, error) {
	for range maxIDAttempts {
		id, err := pkg.GenerateMatchID()
		if err != nil {
			return nil, err
		}

		match := entity.NewMatch(id)
		if err = setup(match); err != nil {
			return nil, err
		}

		err = that.matches.Create(ctx, match)
		if errors.Is(err, apperror.ErrMatchIDUnavailable) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create match: %w", err)
		}

		return match, nil
	}

	return nil, apperror.ErrMatchIDUnavailable
}

func (that *MatchRegistry) getOrCreate(ctx context.Context, matchID string) (*entity.Match, error) {
	match, err := that.matches.GetByID(ctx, matchID)
	if err == nil {
		return match, nil
	}

	if !errors.Is(err, apperror.ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	match = entity.NewMatch(matchID)
	err = that.matches.Create(ctx, match)
	if errors.Is(err, apperror.ErrMatchIDUnavailable) {
		// lost the race to another joiner
		return that.matches.GetByID(ctx, matchID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	that.logger.Info("match created on join", "matchID", matchID)

	return match, nil
}

func newJoinOutcome(matchID string, session entity.Session, waiting bool) *JoinOutcome {
	return &JoinOutcome{
		SessionID:     session.ID,
		MatchID:       matchID,
		AssignedColor: session.Color,
		IsObserver:    session.IsObserver(),
		Waiting:       waiting,
	}
}
