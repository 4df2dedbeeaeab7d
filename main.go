package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/raine/ai-camera-cloud/config"
	"github.com/raine/ai-camera-cloud/internal/janitor"
	"github.com/raine/ai-camera-cloud/internal/llm"
	"github.com/raine/ai-camera-cloud/internal/pipeline"
	"github.com/raine/ai-camera-cloud/internal/price"
	"github.com/raine/ai-camera-cloud/internal/search"
	"github.com/raine/ai-camera-cloud/internal/server"
	"github.com/raine/ai-camera-cloud/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", cfg.LogFile).Msg("logging to file")
	}

	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	analyzer := newAnalyzer(ctx, cfg)

	if cfg.CacheDBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.CacheDBPath)
		if err != nil {
			log.Fatal().Err(err).Str("dbPath", cfg.CacheDBPath).Msg("failed to open analysis cache")
		}
		defer store.Close()
		log.Info().Str("dbPath", cfg.CacheDBPath).Dur("ttl", cfg.CacheDuration).Msg("analysis cache enabled")

		analyzer = llm.NewCachedAnalyzer(analyzer, store, cfg.CacheDuration)

		j := janitor.NewService(store, cfg.CacheDuration, cfg.CacheDuration)
		g.Go(func() error {
			j.Run(ctx)
			return nil
		})
	}

	if cfg.InferenceConcurrency > 0 {
		analyzer = llm.NewGatedAnalyzer(analyzer, cfg.InferenceConcurrency)
		log.Info().Int64("limit", cfg.InferenceConcurrency).Msg("inference concurrency limited")
	}

	orch := pipeline.New(
		analyzer,
		search.NewTemplateProvider(cfg.SearchHonorParams),
		price.NewTemplateProvider(cfg.PriceFilterSources),
	)
	orch.SetMaxImagePixels(cfg.MaxImagePixels)

	srv := server.New(orch, server.Options{
		Addr:               cfg.Addr(),
		AllowOrigins:       cfg.AllowOrigins(),
		ExposeErrorDetails: cfg.ExposeErrorDetails,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		ShutdownTimeout:    cfg.ShutdownTimeout,
	})

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newAnalyzer loads the live vision backend, falling back to simulation
// when it cannot be initialized.
func newAnalyzer(ctx context.Context, cfg *config.Config) llm.Analyzer {
	gemini, err := llm.NewGeminiModel(ctx, llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.VisionModel,
		BaseURL: cfg.GeminiBaseURL,
		Options: llm.Options{
			MaxTokens:   cfg.MaxLength,
			Temperature: &cfg.Temperature,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("vision backend unavailable, running in simulation mode")
		return llm.NewSimulatedModel()
	}

	log.Info().Str("model", gemini.Model()).Msg("gemini vision backend initialized")
	return gemini
}
