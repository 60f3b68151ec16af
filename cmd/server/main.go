package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/controller"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/api/service"
	"ctchen222/tictactoe-minimax/internal/config"
	"ctchen222/tictactoe-minimax/internal/db"
	"ctchen222/tictactoe-minimax/internal/events"
	"ctchen222/tictactoe-minimax/internal/hub"
	"ctchen222/tictactoe-minimax/internal/logger"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/room"
	"ctchen222/tictactoe-minimax/internal/server"
	"ctchen222/tictactoe-minimax/internal/telemetry"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.MustLoad(configPath)

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.Redis.ConnString)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// Initialize SQLite DB
	historyDB, err := db.Connect(ctx, cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer historyDB.Close()
	if err := db.InitializeSchema(ctx, historyDB); err != nil {
		return err
	}

	// Create repositories
	sessionRepo := repository.NewSessionRepository(rdb, cfg.Redis.SessionTTL)
	historyRepo := apirepository.NewHistoryRepository(historyDB)
	bus := events.NewRedisBus(rdb)

	// Create services and controllers
	sessionService := service.NewSessionService(sessionRepo, historyRepo, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	sessionController := controller.NewSessionController(sessionService)

	// Create hub
	h := hub.NewHub(sessionRepo, bus, historyRepo, room.Options{
		ComputerDelay:     cfg.Game.ComputerDelay,
		ReconnectGrace:    cfg.Game.ReconnectGrace,
		HeartbeatInterval: cfg.Game.HeartbeatInterval,
	})
	go h.Run(ctx)

	srv := server.NewServer(h, sessionController, sessionService, map[string]server.HealthCheck{
		"redis":  func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		"sqlite": historyDB.PingContext,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server started", "http.addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server exiting")
	return nil
}
