package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/notify"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
)

const (
	DefaultAIPacing      = time.Second
	DefaultEvictionGrace = 3 * time.Second

	archiveTimeout = 5 * time.Second
)

type matchMembership interface {
	Contains(match *entity.Match) bool
	Remove(match *entity.Match) bool
}

type resultArchive interface {
	Save(ctx context.Context, result repository.MatchResult) error
}

// BotFactory - builds the engine that plays for a match at the given level.
type BotFactory func(level int) Bot

type CoordinatorOptions struct {
	Pacing        time.Duration
	EvictionGrace time.Duration
	NewBot        BotFactory
	// Archive is optional, finished matches are only logged without it.
	Archive resultArchive
}

type MoveResult struct {
	Move    entity.Point   `json:"move"`
	Flipped []entity.Point `json:"flipped"`
}

type aiTask struct {
	cancel context.CancelFunc
}

// MoveCoordinator applies moves, drives computer opponents and retires finished matches.
type MoveCoordinator struct {
	logger  *slog.Logger
	matches matchMembership
	sink    notify.Sink
	archive resultArchive
	newBot  BotFactory

	pacing time.Duration
	grace  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	tasks  map[string]*aiTask
	timers map[string]*time.Timer
}

func NewMoveCoordinator(logger *slog.Logger, matches matchMembership, sink notify.Sink, opts CoordinatorOptions) *MoveCoordinator {
	if opts.Pacing <= 0 {
		opts.Pacing = DefaultAIPacing
	}

	if opts.EvictionGrace <= 0 {
		opts.EvictionGrace = DefaultEvictionGrace
	}

	if opts.NewBot == nil {
		opts.NewBot = func(level int) Bot {
			return NewAlphaBetaBot(level)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MoveCoordinator{
		logger:  logger.With("component", "move-coordinator"),
		matches: matches,
		sink:    sink,
		archive: opts.Archive,
		newBot:  opts.NewBot,
		pacing:  opts.Pacing,
		grace:   opts.EvictionGrace,
		ctx:     ctx,
		cancel:  cancel,
		tasks:   make(map[string]*aiTask),
		timers:  make(map[string]*time.Timer),
	}
}

// ApplyHuman - applies a player's move for the side to move. Caller holds the match lock
// and has already checked that the side to move belongs to the caller.
func (that *MoveCoordinator) ApplyHuman(ctx context.Context, match *entity.Match, move entity.Point) (*MoveResult, error) {
	mover := match.State.Turn

	flipped, err := match.State.ApplyMove(move)
	if err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	that.afterMove(ctx, match, mover, move, flipped)

	return &MoveResult{
		Move:    move,
		Flipped: flipped,
	}, nil
}

// Resume - starts the computer if it is to move, used right after a match is created.
// Caller holds the match lock.
func (that *MoveCoordinator) Resume(match *entity.Match) {
	if !match.IsFinished() && match.AITurn() {
		that.startAI(match)
	}
}

// Close - stops every AI task and pending eviction, then waits for background work.
func (that *MoveCoordinator) Close() {
	that.mu.Lock()
	that.closed = true
	that.cancel()
	for id, timer := range that.timers {
		timer.Stop()
		delete(that.timers, id)
	}
	that.mu.Unlock()

	that.wg.Wait()
}

// afterMove - records and announces a move, then finishes the match or hands over to the computer.
// Caller holds the match lock, so events of one match go out in apply order.
func (that *MoveCoordinator) afterMove(ctx context.Context, match *entity.Match, mover entity.Stone, move entity.Point, flipped []entity.Point) {
	match.Record(mover, move, flipped)

	that.publish(ctx, match.ID, notify.EventUpdate, notify.UpdatePayload{
		MatchID: match.ID,
		Color:   mover,
		Move:    move,
		Flipped: flipped,
		Turn:    match.State.Turn,
	})

	switch {
	case match.IsFinished():
		that.finish(ctx, match)
	case match.AITurn():
		that.startAI(match)
	}
}

func (that *MoveCoordinator) finish(ctx context.Context, match *entity.Match) {
	log := that.logger.With("method", "finish", "matchID", match.ID)

	match.FinishedAt = time.Now()
	result := repository.NewMatchResult(match)

	that.publish(ctx, match.ID, notify.EventGameOver, notify.GameOverPayload{
		MatchID:    match.ID,
		Winner:     result.Winner,
		BlackCount: result.BlackCount,
		WhiteCount: result.WhiteCount,
	})

	log.Info("match finished", "winner", result.Winner.String(),
		"black", result.BlackCount, "white", result.WhiteCount)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	if that.archive != nil {
		that.wg.Add(1)
		go func() {
			defer that.wg.Done()

			archiveCtx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			defer cancel()

			if err := that.archive.Save(archiveCtx, result); err != nil {
				log.Error("failed to archive match result", "error", err)
			}
		}()
	}

	that.timers[match.ID] = time.AfterFunc(that.grace, func() {
		that.evict(match)
	})
}

func (that *MoveCoordinator) evict(match *entity.Match) {
	that.mu.Lock()
	delete(that.timers, match.ID)
	if task, ok := that.tasks[match.ID]; ok {
		task.cancel()
		delete(that.tasks, match.ID)
	}
	that.mu.Unlock()

	if that.matches.Remove(match) {
		that.logger.Info("match evicted", "matchID", match.ID)
	}
}

// startAI - at most one task per match. Caller holds the match lock.
func (that *MoveCoordinator) startAI(match *entity.Match) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	if _, running := that.tasks[match.ID]; running {
		return
	}

	ctx, cancel := context.WithCancel(that.ctx)
	task := &aiTask{cancel: cancel}
	that.tasks[match.ID] = task

	that.wg.Add(1)
	go that.runAI(ctx, match, task, that.newBot(match.AILevel))
}

func (that *MoveCoordinator) runAI(ctx context.Context, match *entity.Match, task *aiTask, bot Bot) {
	defer that.wg.Done()
	defer task.cancel()

	for {
		if !that.pace(ctx) || !that.matches.Contains(match) {
			that.stopTask(match.ID, task)
			return
		}

		match.Lock()
		again := that.playAITurn(ctx, match, task, bot)
		match.Unlock()

		if !again {
			return
		}
	}
}

// playAITurn - one computer move. Reports whether the computer is still to move.
// The task is released under the match lock so a human reply can start a fresh one.
func (that *MoveCoordinator) playAITurn(ctx context.Context, match *entity.Match, task *aiTask, bot Bot) bool {
	log := that.logger.With("method", "playAITurn", "matchID", match.ID)

	if ctx.Err() != nil || !that.matches.Contains(match) || match.IsFinished() || !match.AITurn() {
		that.stopTask(match.ID, task)
		return false
	}

	state := match.State
	mover := state.Turn
	legal := state.LegalMoves()

	move := bot.SelectMove(state.Board, mover, legal)
	if move.IsPass() {
		log.Debug("computer has no move, passing")
		state.Pass()

		if match.IsFinished() {
			that.finish(ctx, match)
		}
	} else {
		flipped, err := state.ApplyMove(move)
		if err != nil {
			log.Error("computer chose an illegal move", "row", move.Row, "col", move.Col, "error", err)
			that.stopTask(match.ID, task)
			return false
		}

		that.afterMove(ctx, match, mover, move, flipped)
	}

	if match.IsFinished() || !match.AITurn() {
		that.stopTask(match.ID, task)
		return false
	}

	return true
}

func (that *MoveCoordinator) stopTask(matchID string, task *aiTask) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.tasks[matchID] == task {
		delete(that.tasks, matchID)
	}
}

// pace - waits between computer moves, false when the task was cancelled.
func (that *MoveCoordinator) pace(ctx context.Context) bool {
	timer := time.NewTimer(that.pacing)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (that *MoveCoordinator) publish(ctx context.Context, matchID, event string, payload any) {
	if err := that.sink.Publish(ctx, notify.MatchTopic(matchID), event, payload); err != nil {
		that.logger.Error("failed to publish event", "matchID", matchID, "event", event, "error", err)
	}
}
