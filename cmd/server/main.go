package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	flag "github.com/spf13/pflag"

	"github.com/viccstake/tilez/internal/config"
	"github.com/viccstake/tilez/internal/events"
	"github.com/viccstake/tilez/internal/gamerepo"
	"github.com/viccstake/tilez/internal/server"
	"github.com/viccstake/tilez/pkg/logutils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment.
	fs := flag.NewFlagSet("tilez-server", flag.ExitOnError)
	fs.StringVarP(&cfg.BindAddr, "bind", "b", cfg.BindAddr, "Address to listen on")
	fs.IntVarP(&cfg.MaxGames, "max-games", "g", cfg.MaxGames, "Maximum number of games that can run concurrently")
	verbose := fs.CountP("verbose", "v", "Increase output verbosity")
	fs.Parse(os.Args[1:])

	logLevel := logutils.ParseLevel(cfg.LogLevel)
	if *verbose > 0 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// Optional RabbitMQ lifecycle publisher

	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp091.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("Failed to connect to RabbitMQ", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Error("Failed to open the queue channel", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer ch.Close()

		publisher, err = events.NewPublisher(ch)
		if err != nil {
			logger.Error("Failed to create event publisher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := events.SetupMonitorQueues(ch); err != nil {
			logger.Error("Failed to set up monitoring queues", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Connected to RabbitMQ", slog.String("url", cfg.RabbitMQURL))
	}

	// Optional Redis live-game registry

	var repo *gamerepo.Redis
	if cfg.RedisAddr != "" {
		redisCli, err := gamerepo.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			logger.Error("Failed to init Redis client", slog.String("error", err.Error()))
			os.Exit(1)
		}

		repo, err = gamerepo.NewRedisRepo(redisCli)
		if err != nil {
			logger.Error("Failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Connected to Redis", slog.String("address", cfg.RedisAddr))

		// Records surviving from a previous run can only be crash leftovers.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if stale, err := repo.GetActiveGames(ctx); err != nil {
			logger.Warn("Could not list active game records", slog.String("error", err.Error()))
		} else if len(stale) > 0 {
			logger.Warn("Found leftover game records from a previous run", slog.Int("count", len(stale)))
		}
		cancel()
	}

	listener, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		logger.Error("Failed to bind", slog.String("addr", cfg.BindAddr), slog.String("error", err.Error()))
		os.Exit(1)
	}

	// A typed nil pointer must not reach the server's optional collaborators.
	var srv *server.Server
	switch {
	case publisher != nil && repo != nil:
		srv = server.New(logger, listener, int64(cfg.MaxGames), publisher, repo)
	case publisher != nil:
		srv = server.New(logger, listener, int64(cfg.MaxGames), publisher, nil)
	case repo != nil:
		srv = server.New(logger, listener, int64(cfg.MaxGames), nil, repo)
	default:
		srv = server.New(logger, listener, int64(cfg.MaxGames), nil, nil)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting game server...", slog.Int("max_games", cfg.MaxGames))
		if err := srv.Serve(); err != nil {
			logger.Error("Server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Info("Received signal, shutting down...", slog.String("signal", sig.String()))
	srv.Shutdown()
	srv.Wait()
	logger.Info("Server shutdown complete")
}
