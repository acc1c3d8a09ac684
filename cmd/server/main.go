// Package main provides the entry point for the Kaiwa bot server.
// The server receives messaging-platform webhooks, keeps a short-lived
// per-conversation history, and routes slash commands to handlers backed by
// a text-generation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kaiwa-bot/kaiwa/internal/api"
	"github.com/kaiwa-bot/kaiwa/internal/backend"
	"github.com/kaiwa-bot/kaiwa/internal/buildinfo"
	"github.com/kaiwa-bot/kaiwa/internal/command"
	"github.com/kaiwa-bot/kaiwa/internal/config"
	"github.com/kaiwa-bot/kaiwa/internal/logging"
	"github.com/kaiwa-bot/kaiwa/internal/memory"
	"github.com/kaiwa-bot/kaiwa/internal/reply"
	"github.com/kaiwa-bot/kaiwa/internal/webhook"
	log "github.com/sirupsen/logrus"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup and build metadata.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("Kaiwa Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Secrets are usually supplied through the environment; a local .env is
	// a development convenience and its absence is not an error.
	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !os.IsNotExist(errLoad) {
			log.Warnf("failed to load .env: %v", errLoad)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.SetLevel(cfg.LoggingLevel)
	if cfg.RequestLog {
		logging.EnableFileOutput(cfg.LogDir)
	}
	if cfg.ChannelSecret == "" {
		log.Warn("channel secret is empty; every webhook delivery will be rejected")
	}

	store := memory.NewStore(memory.StoreConfig{
		HistoryLimit:     cfg.HistoryLimit,
		TTL:              cfg.TTL(),
		MaxConversations: cfg.MaxConversations,
	})
	router := command.NewRouter(
		store,
		backend.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel),
		reply.NewLineClient(cfg.ChannelToken),
		command.Options{
			SummaryMaxMessages: cfg.SummaryMaxMessages,
			Timezone:           cfg.Timezone,
		},
	)
	gateway := webhook.NewGateway(cfg.ChannelSecret, router)
	server := api.NewServer(cfg, gateway)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = config.Watch(ctx, configPath, server.ApplyConfig); err != nil {
		log.Warnf("config hot reload unavailable: %v", err)
	}

	if err = server.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("kaiwa stopped")
}
