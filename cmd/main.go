package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"realtime-hub/api"
	"realtime-hub/auth"
	"realtime-hub/contract"
	grpc2 "realtime-hub/grpc"
	"realtime-hub/repositories"
	"realtime-hub/runtime"
	"realtime-hub/runtime/workers"
	"realtime-hub/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until a signal arrives.
// Returning instead of exiting lets every defer (storage close, supervisor stop) run.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Message history
	repository, closeStorage, err := openRepository(ctx, log, config)
	if err != nil {
		return err
	}
	defer closeStorage()

	// 4. Realtime core
	registry := runtime.NewRegistry(log)
	registry.Notify(runtime.NewPresenceBroadcaster(log, registry))
	router := runtime.NewRouter(log, registry)
	chat := services.NewChatService(log, repository, router, registry, config.MaxContentLength)

	// 5. Background workers
	health := grpc2.NewHealthServer(log, config.HealthAddress())
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewStatsWorker(log, registry, config.MetricInterval), health)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 6. HTTP boundary, blocks until ctx is canceled
	server := api.NewServer(log,
		auth.NewTokenValidator(config.SecretKey),
		chat, registry, router,
		config.SessionConfig(),
		config.Origins())
	serveErr := server.Run(ctx, config.Address())

	// 7. Final Cleanup
	log.Info("Shutting down gracefully...")
	health.Shutdown()
	stop()
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")
	return serveErr
}

// openRepository returns the configured message store and its close function.
func openRepository(ctx context.Context, log *slog.Logger, config Config) (contract.IMessageRepository, func(), error) {
	switch config.StorageDriver {
	case "postgres":
		pool, err := pgxpool.New(ctx, config.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		repository := repositories.NewPostgresMessageRepository(pool, config.LimitMessages)
		if err := repository.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema failed: %w", err)
		}
		log.Info("Message history in postgres")
		return repository, pool.Close, nil
	default:
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		log.Info("Message history in badger", "path", config.BadgerFilepath)
		return repositories.NewBadgerMessageRepository(db, log, config.LimitMessages), func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil
	}
}
