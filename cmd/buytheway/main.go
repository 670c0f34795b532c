package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/buytheway/buytheway-bridge/internal/api"
	"github.com/buytheway/buytheway-bridge/internal/biz"
	"github.com/buytheway/buytheway-bridge/internal/conf"
	"github.com/buytheway/buytheway-bridge/internal/data"
	"github.com/buytheway/buytheway-bridge/internal/infra/onebot"
	"github.com/buytheway/buytheway-bridge/internal/server"
	"github.com/buytheway/buytheway-bridge/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	// Initialize clients
	onebotClient := onebot.NewClient(cfg.OneBot.URL, cfg.OneBot.AccessToken, logger)

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg, onebotClient, logger)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()
	logger.Info("Forward history opened", "path", cfg.History.DBPath)

	// Initialize usecase layer
	ucs := biz.NewUsecases(biz.Ports{
		Prober:   repos.Prober,
		Mailer:   repos.Mailer,
		Runtime:  repos.Runtime,
		Feishu:   repos.Feishu,
		Notifier: repos.Notifier,
		Filter:   repos.Filter,
		History:  repos.History,
	}, logger)
	if repos.Feishu != nil {
		logger.Info("Feishu relay enabled")
	}
	if repos.Filter != nil {
		logger.Info("Relevance filter available", "model", cfg.OpenAI.Model)
	}

	// Initialize service layer
	intake := service.NewIntakeService(onebotClient, repos.Settings, ucs.Forward, repos.Notifier, logger)
	pruner := service.NewCronRunner(repos.History, cfg.History.Retention(), cfg.History.PruneSpec, logger)

	// HTTP API for the MCP tools
	apiServer := api.NewServer(repos.History, repos.Settings, ucs.Forward, intake, repos.Notifier, cfg.API.Port, logger)

	srv := server.NewBridgeServer(onebotClient, intake, repos.Settings, pruner, apiServer, logger)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting BuyTheWay bridge", "onebot", cfg.OneBot.URL, "api_port", cfg.API.Port)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Bridge stopped with error", "error", err)
		repos.Close()
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	if debug {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
