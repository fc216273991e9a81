// selfplay pits the alpha-beta engine (black) against a random mover (white) and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
	"github.com/rocketscienceinc/othello-backend/internal/service"
)

type gameResult struct {
	index  int
	board  entity.Board
	winner entity.Stone
	moves  int
}

func main() {
	depth := flag.Int("depth", 5, "Alpha-beta search depth for black")
	games := flag.Int("games", 1, "Number of games to play")
	seed := flag.Int64("seed", 0, "Random seed (0 for time-based)")
	verbose := flag.Bool("v", false, "Print every final board")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	if *games < 1 {
		logger.Error("games must be positive", "games", *games)
		os.Exit(1)
	}

	logger.Info("starting self-play", "depth", *depth, "games", *games, "seed", *seed)

	results := make([]gameResult, *games)

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < *games; i++ {
		g.Go(func() error {
			result, err := playGame(ctx, i, *depth, *seed+int64(i))
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("self-play failed", "error", err)
		os.Exit(1)
	}

	tally := map[entity.Stone]int{}
	for _, result := range results {
		tally[result.winner]++

		if *verbose || *games == 1 {
			fmt.Printf("game %d: %d moves\n%s", result.index+1, result.moves, result.board.String())
		}

		fmt.Printf("game %d: black %d, white %d, winner %s\n", result.index+1,
			result.board.Count(entity.Black), result.board.Count(entity.White), winnerName(result.winner))
	}

	fmt.Printf("alpha-beta (black) %d, random (white) %d, draws %d\n",
		tally[entity.Black], tally[entity.White], tally[entity.Empty])
}

func playGame(ctx context.Context, index, depth int, seed int64) (gameResult, error) {
	players := map[entity.Stone]service.Bot{
		entity.Black: service.NewAlphaBetaBot(depth),
		entity.White: service.NewRandomBot(rand.New(rand.NewSource(seed))), //nolint: gosec // reproducible games
	}

	state := entity.NewGameState()
	moves := 0

	for state.Turn != entity.Empty {
		if err := ctx.Err(); err != nil {
			return gameResult{}, err
		}

		legal := state.LegalMoves()
		move := players[state.Turn].SelectMove(state.Board, state.Turn, legal)
		if move.IsPass() {
			state.Pass()
			continue
		}

		if _, err := state.ApplyMove(move); err != nil {
			return gameResult{}, fmt.Errorf("failed to apply move: %w", err)
		}
		moves++
	}

	return gameResult{
		index:  index,
		board:  state.Board,
		winner: state.Winner(),
		moves:  moves,
	}, nil
}

func winnerName(winner entity.Stone) string {
	if winner == entity.Empty {
		return "draw"
	}

	return winner.String()
}
