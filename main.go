// Command antonslayer is the main entrypoint for the CS2 match watcher bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs migrations (versioned with embedded fallback).
//   - Connects the Discord gateway and registers the slash commands.
//   - Listens for CS2 game state integration posts on a local-only ingest server.
//   - Optionally polls the Leetify API for enriched post-match analysis.
//   - Exposes an ops HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Catsarenotevil/AntonSlayer/auditlog"
	"github.com/Catsarenotevil/AntonSlayer/config"
	"github.com/Catsarenotevil/AntonSlayer/db"
	"github.com/Catsarenotevil/AntonSlayer/discord"
	"github.com/Catsarenotevil/AntonSlayer/leetify"
	"github.com/Catsarenotevil/AntonSlayer/pipeline"
	"github.com/Catsarenotevil/AntonSlayer/roast"
	"github.com/Catsarenotevil/AntonSlayer/server"
	"github.com/Catsarenotevil/AntonSlayer/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDiscord(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("antonslayer", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.ConnectDSN(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Migrations: versioned first, embedded SQL as fallback for deployments without the
	// schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Roast pools: custom file when configured, embedded defaults otherwise.
	var sel *roast.Selector
	if cfg.StringsFile != "" {
		sel, err = roast.LoadFile(cfg.StringsFile)
	} else {
		sel, err = roast.Default()
	}
	if err != nil {
		slog.Error("failed to load roast strings", slog.Any("err", err))
		os.Exit(1)
	}

	store := db.NewStore(database)
	audit := auditlog.New(filepath.Join(cfg.DataDir, "matches.jsonl"))
	assets := discord.Assets{Dir: cfg.AssetsDir}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Discord bot + announcer. The announcer is handed to the pipeline after the bot
	// exists because it posts through the bot's session.
	bot, err := discord.New(cfg.DiscordToken, discord.Options{
		ChannelID: cfg.TargetChannelID,
		OwnerID:   cfg.BotOwnerID,
		GuildID:   cfg.GuildID,
		DevMode:   cfg.DevMode,
		Steam64:   cfg.TargetSteam64,
	}, store, audit)
	if err != nil {
		slog.Error("failed to create discord bot", slog.Any("err", err))
		os.Exit(1)
	}
	announcer := discord.NewChannelAnnouncer(bot.Session(), cfg.TargetChannelID, assets, sel)

	proc := pipeline.New(pipeline.Config{
		Steam64:     cfg.TargetSteam64,
		KillsMax:    cfg.KillsMax,
		SettleDelay: cfg.SettleDelay,
	}, store, announcer, audit, sel)
	defer proc.Close()
	bot.SetProcessor(proc)

	if err := bot.Start(ctx); err != nil {
		slog.Error("failed to start discord bot", slog.Any("err", err))
		os.Exit(1)
	}

	// Leetify poller (optional; requires LEETIFY_TOKEN and TARGET_STEAM64)
	if cfg.LeetifyEnabled() {
		client := leetify.NewClient(cfg.LeetifyToken, leetify.DefaultBaseURL)
		poller := leetify.NewPoller(client, store, announcer, cfg.TargetSteam64, cfg.LeetifyPollInterval)
		go poller.StartPollJob(ctx)
	} else {
		slog.Info("leetify poller disabled (missing LEETIFY_TOKEN or TARGET_STEAM64)")
	}

	handlers := server.NewHandlers(database, proc, audit)

	// GSI ingest server, bound to loopback by default so only the local game client
	// can post payloads.
	go func() {
		slog.Info("gsi ingest listening", slog.String("addr", cfg.GSIAddr))
		if err := server.Start(ctx, cfg.GSIAddr, server.NewIngestMux(handlers)); err != nil {
			slog.Error("gsi ingest server failed", slog.Any("err", err))
		}
	}()

	// Ops server (health, readiness, status, metrics)
	slog.Info("ops server listening", slog.String("addr", cfg.HTTPAddr))
	if err := server.Start(ctx, cfg.HTTPAddr, server.NewOpsMux(handlers)); err != nil {
		slog.Error("ops server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
