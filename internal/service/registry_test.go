package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/notify"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/testing/suite"
)

type recordedEvent struct {
	Topic   string
	Event   string
	Payload any
}

type recordingSink struct {
	mu            sync.Mutex
	events        []recordedEvent
	subscriptions map[string][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{subscriptions: make(map[string][]string)}
}

func (that *recordingSink) Publish(_ context.Context, topic, event string, payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = append(that.events, recordedEvent{Topic: topic, Event: event, Payload: payload})

	return nil
}

func (that *recordingSink) Subscribe(_ context.Context, connectionID, topic string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.subscriptions[topic] = append(that.subscriptions[topic], connectionID)

	return nil
}

func (that *recordingSink) On(topic string) []recordedEvent {
	that.mu.Lock()
	defer that.mu.Unlock()

	out := []recordedEvent{}
	for _, event := range that.events {
		if event.Topic == topic {
			out = append(out, event)
		}
	}

	return out
}

func (that *recordingSink) Count(topic, name string) int {
	count := 0
	for _, event := range that.On(topic) {
		if event.Event == name {
			count++
		}
	}

	return count
}

func (that *recordingSink) Subscribers(topic string) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.subscriptions[topic]...)
}

type archiveMock struct {
	mock.Mock
}

func (that *archiveMock) Save(ctx context.Context, result repository.MatchResult) error {
	args := that.Called(ctx, result)
	return args.Error(0)
}

type testEnv struct {
	registry *MatchRegistry
	matches  *repository.MatchRepository
	queue    *repository.WaitingQueue
	sink     *recordingSink
}

func newTestEnv(t *testing.T, opts CoordinatorOptions) *testEnv {
	t.Helper()

	if opts.Pacing == 0 {
		opts.Pacing = time.Millisecond
	}

	if opts.EvictionGrace == 0 {
		opts.EvictionGrace = time.Minute
	}

	logger := suite.NewLogger()
	matches := repository.NewMatchRepository()
	queue := repository.NewWaitingQueue()
	sink := newRecordingSink()

	coordinator := NewMoveCoordinator(logger, matches, sink, opts)
	registry := NewMatchRegistry(logger, matches, queue, sink, coordinator, 2)
	t.Cleanup(registry.Close)

	return &testEnv{
		registry: registry,
		matches:  matches,
		queue:    queue,
		sink:     sink,
	}
}

// setPosition - replaces the game state of a live match.
func (that *testEnv) setPosition(t *testing.T, matchID string, board entity.Board, turn entity.Stone) {
	t.Helper()

	match, err := that.matches.GetByID(context.Background(), matchID)
	require.NoError(t, err)

	match.Lock()
	match.State = entity.FromBoardAndTurn(board, turn)
	match.Unlock()
}

func TestMatchRegistry_JoinByID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, CoordinatorOptions{})

	// When: two players and an observer join match 7
	first, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", MatchID: "7"})
	require.NoError(t, err)
	second, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", MatchID: "7"})
	require.NoError(t, err)
	observer, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "eve", MatchID: "7", IsObserver: true})
	require.NoError(t, err)

	// Then: colors are assigned in arrival order
	assert.Equal(t, "7", first.MatchID)
	assert.Equal(t, entity.Black, first.AssignedColor)
	assert.Equal(t, entity.White, second.AssignedColor)
	assert.True(t, observer.IsObserver)
	assert.Equal(t, entity.Empty, observer.AssignedColor)
	assert.NotEqual(t, first.SessionID, second.SessionID)

	// Then: a third player is refused
	_, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "mallory", MatchID: "7"})
	require.ErrorIs(t, err, apperror.ErrMatchFull)

	// Then: everybody in the match can read the state
	view, err := env.registry.GetSnapshot(ctx, observer.SessionID, "7")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.BlackPlayerName)
	assert.Equal(t, "bob", view.WhitePlayerName)
	assert.Equal(t, entity.Black, view.Turn)
	assert.Len(t, view.LegalMoves, 4)
	assert.False(t, view.IsFinished)
}

// takenIDs - a match store where every id is already in use.
type takenIDs struct {
	*repository.MatchRepository
	attempts int
}

func (that *takenIDs) Create(_ context.Context, _ *entity.Match) error {
	that.attempts++
	return apperror.ErrMatchIDUnavailable
}

func TestMatchRegistry_MatchIDExhausted(t *testing.T) {
	// Given: a store that rejects every generated id
	logger := suite.NewLogger()
	store := &takenIDs{MatchRepository: repository.NewMatchRepository()}
	sink := newRecordingSink()
	coordinator := NewMoveCoordinator(logger, store, sink, CoordinatorOptions{})
	registry := NewMatchRegistry(logger, store, repository.NewWaitingQueue(), sink, coordinator, 2)
	t.Cleanup(registry.Close)

	// When: a player starts a game against the computer
	_, err := registry.JoinOrCreate(context.Background(), JoinRequest{Name: "alice", VsAI: true})

	// Then: the registry gives up after a bounded number of draws
	require.ErrorIs(t, err, apperror.ErrMatchIDUnavailable)
	assert.Equal(t, maxIDAttempts, store.attempts)
}

func TestMatchRegistry_JoinVsAI(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, CoordinatorOptions{})

	t.Run("Human plays black against the computer", func(t *testing.T) {
		outcome, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", VsAI: true, AILevel: 3})
		require.NoError(t, err)

		assert.Equal(t, entity.Black, outcome.AssignedColor)
		assert.False(t, outcome.Waiting)

		match, err := env.matches.GetByID(ctx, outcome.MatchID)
		require.NoError(t, err)
		match.Lock()
		defer match.Unlock()
		assert.Equal(t, entity.White, match.AIColor)
		assert.Equal(t, 3, match.AILevel)
		assert.Equal(t, "Computer", match.PlayerName(entity.White))
	})

	t.Run("Missing level uses the default", func(t *testing.T) {
		outcome, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", VsAI: true})
		require.NoError(t, err)

		match, err := env.matches.GetByID(ctx, outcome.MatchID)
		require.NoError(t, err)
		match.Lock()
		defer match.Unlock()
		assert.Equal(t, 2, match.AILevel)
	})

	t.Run("Each game gets its own id", func(t *testing.T) {
		ids := map[string]bool{}
		for range 20 {
			outcome, err := env.registry.JoinOrCreate(ctx, JoinRequest{VsAI: true})
			require.NoError(t, err)
			ids[outcome.MatchID] = true
		}

		assert.Len(t, ids, 20)
	})
}

func TestMatchRegistry_JoinRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("Observer needs a match id", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})

		_, err := env.registry.JoinOrCreate(ctx, JoinRequest{IsObserver: true, ConnectionID: "c1"})

		require.ErrorIs(t, err, apperror.ErrMissingJoinTarget)
	})

	t.Run("Nobody waiting and no connection", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})

		_, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice"})

		require.ErrorIs(t, err, apperror.ErrMissingConnection)
		assert.Equal(t, 0, env.matches.Len())
	})

	t.Run("Unregistered connection cannot wait", func(t *testing.T) {
		// Given: a registry publishing through a real hub
		logger := suite.NewLogger()
		hub := notify.NewHub(logger, 4)
		matches := repository.NewMatchRepository()
		queue := repository.NewWaitingQueue()
		coordinator := NewMoveCoordinator(logger, matches, hub, CoordinatorOptions{})
		registry := NewMatchRegistry(logger, matches, queue, hub, coordinator, 2)
		t.Cleanup(registry.Close)

		// When: a player asks to wait on a socket the hub never saw
		_, err := registry.JoinOrCreate(ctx, JoinRequest{Name: "ghost", ConnectionID: "no-such-socket"})

		// Then: there is nowhere to deliver the pairing, so nothing is queued
		require.ErrorIs(t, err, apperror.ErrMissingConnection)
		assert.Equal(t, 0, matches.Len())
		assert.Equal(t, 0, queue.Len())

		// When: the same socket is registered
		hub.Register("no-such-socket")
		outcome, err := registry.JoinOrCreate(ctx, JoinRequest{Name: "ghost", ConnectionID: "no-such-socket"})

		// Then: the player waits
		require.NoError(t, err)
		assert.True(t, outcome.Waiting)
		assert.Equal(t, 1, queue.Len())
	})

	t.Run("Second player is paired with the first", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})

		// Given: alice waits
		waiting, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", ConnectionID: "c1"})
		require.NoError(t, err)
		assert.True(t, waiting.Waiting)
		assert.Equal(t, entity.Black, waiting.AssignedColor)

		// When: bob asks for a random opponent
		paired, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", ConnectionID: "c2"})
		require.NoError(t, err)

		// Then: bob is white in alice's match and both connections hear about it
		assert.False(t, paired.Waiting)
		assert.Equal(t, waiting.MatchID, paired.MatchID)
		assert.Equal(t, entity.White, paired.AssignedColor)

		found := env.sink.On(notify.ConnectionTopic("c1"))
		require.Len(t, found, 1)
		assert.Equal(t, notify.EventMatchFound, found[0].Event)
		assert.Equal(t, notify.MatchFoundPayload{
			MatchID:       waiting.MatchID,
			SessionID:     waiting.SessionID,
			AssignedColor: entity.Black,
		}, found[0].Payload)

		found = env.sink.On(notify.ConnectionTopic("c2"))
		require.Len(t, found, 1)
		assert.Equal(t, paired.SessionID, found[0].Payload.(notify.MatchFoundPayload).SessionID)

		// Then: both connections are in the match group
		assert.ElementsMatch(t, []string{"c1", "c2"}, env.sink.Subscribers(notify.MatchTopic(paired.MatchID)))
	})

	t.Run("Pairing follows arrival order", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})

		// Given: two players waiting in their own matches, oldest first
		for _, id := range []string{"100", "200"} {
			outcome, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "waiter" + id, MatchID: id})
			require.NoError(t, err)
			env.queue.Enqueue(repository.WaitingEntry{
				MatchID: id,
				Session: entity.Session{ID: outcome.SessionID, Color: outcome.AssignedColor},
			})
		}

		// When: two random joiners arrive
		third, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "c"})
		require.NoError(t, err)
		fourth, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "d"})
		require.NoError(t, err)

		// Then: they are matched in FIFO order
		assert.Equal(t, "100", third.MatchID)
		assert.Equal(t, "200", fourth.MatchID)
		assert.Equal(t, entity.White, fourth.AssignedColor)
		assert.Equal(t, 0, env.queue.Len())
	})

	t.Run("Entries of filled matches are skipped", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})

		// Given: alice waits but bob joins her match directly
		waiting, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", ConnectionID: "c1"})
		require.NoError(t, err)
		_, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", MatchID: waiting.MatchID})
		require.NoError(t, err)

		// When: carol asks for a random opponent
		outcome, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "carol", ConnectionID: "c3"})

		// Then: the stale entry is dropped and carol waits in a new match
		require.NoError(t, err)
		assert.True(t, outcome.Waiting)
		assert.NotEqual(t, waiting.MatchID, outcome.MatchID)
		assert.Equal(t, 1, env.queue.Len())
	})
}

func TestMatchRegistry_GetSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, CoordinatorOptions{})

	joined, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", MatchID: "1"})
	require.NoError(t, err)

	t.Run("Unknown match", func(t *testing.T) {
		_, err := env.registry.GetSnapshot(ctx, joined.SessionID, "404")

		require.ErrorIs(t, err, apperror.ErrMatchNotFound)
	})

	t.Run("Session from elsewhere", func(t *testing.T) {
		_, err := env.registry.GetSnapshot(ctx, "stranger", "1")

		require.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestMatchRegistry_ApplyPlayerMove(t *testing.T) {
	ctx := context.Background()

	newMatch := func(t *testing.T, env *testEnv) (black, white, observer *JoinOutcome) {
		t.Helper()

		var err error
		black, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", MatchID: "5"})
		require.NoError(t, err)
		white, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", MatchID: "5"})
		require.NoError(t, err)
		observer, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "eve", MatchID: "5", IsObserver: true})
		require.NoError(t, err)

		return black, white, observer
	}

	t.Run("Legal move is applied and announced", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})
		black, _, _ := newMatch(t, env)

		// When: black opens at (2,3)
		result, err := env.registry.ApplyPlayerMove(ctx, black.SessionID, "5", entity.Point{Row: 2, Col: 3})

		// Then: (3,3) flips and an update goes to the match group
		require.NoError(t, err)
		assert.Equal(t, []entity.Point{{Row: 3, Col: 3}}, result.Flipped)

		events := env.sink.On(notify.MatchTopic("5"))
		require.Len(t, events, 1)
		assert.Equal(t, notify.UpdatePayload{
			MatchID: "5",
			Color:   entity.Black,
			Move:    entity.Point{Row: 2, Col: 3},
			Flipped: []entity.Point{{Row: 3, Col: 3}},
			Turn:    entity.White,
		}, events[0].Payload)
	})

	t.Run("Rejections", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})
		black, white, observer := newMatch(t, env)

		_, err := env.registry.ApplyPlayerMove(ctx, white.SessionID, "5", entity.Point{Row: 2, Col: 4})
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)

		_, err = env.registry.ApplyPlayerMove(ctx, observer.SessionID, "5", entity.Point{Row: 2, Col: 3})
		require.ErrorIs(t, err, apperror.ErrUnauthorized)

		_, err = env.registry.ApplyPlayerMove(ctx, "stranger", "5", entity.Point{Row: 2, Col: 3})
		require.ErrorIs(t, err, apperror.ErrUnauthorized)

		_, err = env.registry.ApplyPlayerMove(ctx, black.SessionID, "6", entity.Point{Row: 2, Col: 3})
		require.ErrorIs(t, err, apperror.ErrMatchNotFound)

		_, err = env.registry.ApplyPlayerMove(ctx, black.SessionID, "5", entity.Point{Row: 0, Col: 0})
		require.ErrorIs(t, err, apperror.ErrInvalidMove)

		// Then: nothing was announced
		assert.Empty(t, env.sink.On(notify.MatchTopic("5")))
	})

	t.Run("Concurrent submissions apply exactly once", func(t *testing.T) {
		env := newTestEnv(t, CoordinatorOptions{})
		black, _, _ := newMatch(t, env)
		opening := []entity.Point{{Row: 2, Col: 3}, {Row: 3, Col: 2}, {Row: 4, Col: 5}, {Row: 5, Col: 4}}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			notYours  int
		)

		// When: black fires many moves at once
		for i := range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := env.registry.ApplyPlayerMove(ctx, black.SessionID, "5", opening[i%len(opening)])

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, apperror.ErrNotYourTurn):
					notYours++
				}
			}()
		}
		wg.Wait()

		// Then: one move landed and the rest saw white to move
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 31, notYours)
		assert.Equal(t, 1, env.sink.Count(notify.MatchTopic("5"), notify.EventUpdate))

		view, err := env.registry.GetSnapshot(ctx, black.SessionID, "5")
		require.NoError(t, err)
		assert.Equal(t, 4, view.Board.Count(entity.Black))
		assert.Equal(t, entity.White, view.Turn)
	})
}

func TestMatchRegistry_GameOverAndEviction(t *testing.T) {
	ctx := context.Background()
	archive := &archiveMock{}
	env := newTestEnv(t, CoordinatorOptions{
		EvictionGrace: 200 * time.Millisecond,
		Archive:       archive,
	})

	black, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", MatchID: "9"})
	require.NoError(t, err)
	_, err = env.registry.JoinOrCreate(ctx, JoinRequest{Name: "bob", MatchID: "9"})
	require.NoError(t, err)

	// Given: one capture left on the board
	var board entity.Board
	board[0][0], board[0][1] = entity.Black, entity.White
	env.setPosition(t, "9", board, entity.Black)

	archive.On("Save", mock.Anything, mock.MatchedBy(func(result repository.MatchResult) bool {
		return result.MatchID == "9" && result.Winner == entity.Black && result.BlackCount == 3
	})).Return(nil).Once()

	// When: black takes it
	_, err = env.registry.ApplyPlayerMove(ctx, black.SessionID, "9", entity.Point{Row: 0, Col: 2})
	require.NoError(t, err)

	// Then: the game is over exactly once and further moves are refused
	view, err := env.registry.GetSnapshot(ctx, black.SessionID, "9")
	require.NoError(t, err)
	assert.True(t, view.IsFinished)
	assert.Equal(t, entity.Black, view.Winner)
	assert.Equal(t, 1, env.sink.Count(notify.MatchTopic("9"), notify.EventGameOver))

	events := env.sink.On(notify.MatchTopic("9"))
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventUpdate, events[0].Event)
	assert.Equal(t, notify.EventGameOver, events[1].Event)

	_, err = env.registry.ApplyPlayerMove(ctx, black.SessionID, "9", entity.Point{Row: 0, Col: 3})
	require.ErrorIs(t, err, apperror.ErrNotYourTurn)

	// Then: the match disappears after the grace period
	require.Eventually(t, func() bool {
		_, err := env.registry.GetSnapshot(ctx, black.SessionID, "9")
		return errors.Is(err, apperror.ErrMatchNotFound)
	}, 2*time.Second, 5*time.Millisecond)

	env.registry.Close()
	archive.AssertExpectations(t)
}

func TestMatchRegistry_Subscribe(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, CoordinatorOptions{})

	_, err := env.registry.JoinOrCreate(ctx, JoinRequest{Name: "alice", MatchID: "3"})
	require.NoError(t, err)

	require.NoError(t, env.registry.Subscribe(ctx, "c9", "3"))
	assert.Equal(t, []string{"c9"}, env.sink.Subscribers(notify.MatchTopic("3")))

	err = env.registry.Subscribe(ctx, "c9", "4")
	require.ErrorIs(t, err, apperror.ErrMatchNotFound)
}
