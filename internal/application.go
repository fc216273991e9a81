package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/othello-backend/internal/config"
	"github.com/rocketscienceinc/othello-backend/internal/notify"
	"github.com/rocketscienceinc/othello-backend/internal/repository"
	"github.com/rocketscienceinc/othello-backend/internal/repository/storage"
	"github.com/rocketscienceinc/othello-backend/internal/service"
	"github.com/rocketscienceinc/othello-backend/internal/usecase"
	"github.com/rocketscienceinc/othello-backend/transport/rest"
	"github.com/rocketscienceinc/othello-backend/transport/websocket"
)

const hubBufferSize = 64

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	hub := notify.NewHub(logger, hubBufferSize)

	var sink notify.Sink = hub
	if conf.Redis.Enabled {
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		redisSink := notify.NewRedisSink(logger, redisStorage.Connection, hub)
		g.Go(func() error {
			return redisSink.Run(gctx)
		})

		sink = redisSink
	}

	archive, closeArchive, err := openArchive(ctx, log, conf.Archive)
	if err != nil {
		return err
	}
	defer closeArchive()

	matches := repository.NewMatchRepository()
	queue := repository.NewWaitingQueue()

	opts := service.CoordinatorOptions{
		Pacing:        conf.Game.AIPacing,
		EvictionGrace: conf.Game.EvictionGrace,
	}
	if archive != nil {
		opts.Archive = archive
	}

	coordinator := service.NewMoveCoordinator(logger, matches, sink, opts)
	registry := service.NewMatchRegistry(logger, matches, queue, sink, coordinator, conf.Game.AILevel)
	defer registry.Close()

	var gameUseCase usecase.GameUseCase
	if archive != nil {
		gameUseCase = usecase.NewGameUseCase(registry, archive)
	} else {
		gameUseCase = usecase.NewGameUseCase(registry, nil)
	}

	wsServer := websocket.New(logger, gameUseCase, hub)
	httpServer := rest.New(logger, gameUseCase, wsServer)

	g.Go(func() error {
		if httpErr := httpServer.Start(gctx, conf.HTTPPort); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}

		return nil
	})

	if err = g.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// openArchive - the results archive is disabled when no sqlite path is configured.
func openArchive(ctx context.Context, log *slog.Logger, conf config.Archive) (*repository.ArchiveRepository, func(), error) {
	if conf.SQLitePath == "" {
		return nil, func() {}, nil
	}

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
	}

	if err = sqliteStorage.Init(ctx); err != nil {
		_ = sqliteStorage.Close()
		return nil, nil, fmt.Errorf("could not init sqlite storage: %w", err)
	}

	closeFn := func() {
		if closeErr := sqliteStorage.Close(); closeErr != nil {
			log.Error("could not close sqlite storage", "error", closeErr)
		}
	}

	return repository.NewArchiveRepository(sqliteStorage.Connection), closeFn, nil
}
