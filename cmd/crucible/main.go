package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crucible-hq/crucible/internal/api"
	"github.com/crucible-hq/crucible/internal/callstore"
	"github.com/crucible-hq/crucible/internal/canvas"
	"github.com/crucible-hq/crucible/internal/config"
	"github.com/crucible-hq/crucible/internal/events"
	"github.com/crucible-hq/crucible/internal/grading"
	"github.com/crucible-hq/crucible/internal/lifecycle"
	"github.com/crucible-hq/crucible/internal/openai"
	"github.com/crucible-hq/crucible/internal/records"
	"github.com/crucible-hq/crucible/internal/responder"
	"github.com/crucible-hq/crucible/internal/retell"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("crucible starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel)
	slog.Info("llm client ready", "model", cfg.LLMModel)

	// Durable artifact sink
	sink, err := records.NewFileSink(cfg.CallDataDir, cfg.TavusWebhookDir, slog.Default())
	if err != nil {
		slog.Error("failed to prepare data directories", "error", err)
		os.Exit(1)
	}

	// Voice provider API (optional — lifecycle records get null provider data
	// without it)
	provider := retell.NewClient(cfg.RetellBaseURL, cfg.RetellAPIKey)
	if !provider.Configured() {
		slog.Warn("RETELL_API_KEY not set — provider fetches disabled")
	}

	scorer := grading.NewScorer(llm, slog.Default())

	corr := lifecycle.NewCorrelator(callstore.New(), provider, sink, scorer, slog.Default())

	// Postgres archive (optional)
	if cfg.DatabaseURL != "" {
		archive, err := records.NewPGArchive(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer archive.Close()
		corr = corr.WithArchive(archive)
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — running without the archive")
	}

	// Event bus (optional)
	if cfg.NatsURL != "" {
		bus, err := events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		corr = corr.WithBus(bus)
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without the event bus")
	}

	// Conversational relay
	gen := responder.New(responder.NewStreamer(llm), slog.Default())

	// Diagram review
	checker := canvas.NewChecker(canvas.NewClient(cfg.ExcalidrawBaseURL), llm, slog.Default())

	srv := api.NewServer(
		api.Options{
			Port:             cfg.Port,
			RetellAPIKey:     cfg.RetellAPIKey,
			SkipVerification: cfg.SkipVerification,
		},
		api.Deps{
			Lifecycle: corr,
			TavusSink: sink,
			Grader:    scorer,
			Checker:   checker,
			Generator: gen,
		},
		slog.Default(),
	)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("crucible ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("crucible stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
