package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/config"
	"alfredoptarigan/hiresense/internal/handlers"
	"alfredoptarigan/hiresense/internal/inference"
	"alfredoptarigan/hiresense/internal/logger"
	"alfredoptarigan/hiresense/internal/repositories"
	"alfredoptarigan/hiresense/internal/scoring"
	"alfredoptarigan/hiresense/internal/services"
	"alfredoptarigan/hiresense/internal/session"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Server.LogJSON, cfg.Server.LogDebug)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer zl.Sync()
	zl.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	// Models load before anything listens: no model, no service.
	models, err := inference.Load(inference.Options{
		ClassifierDir: cfg.Model.Dir,
		SkillDir:      cfg.Model.SkillDir,
		LibraryPath:   cfg.Model.RuntimeLib,
		MaxLength:     cfg.Model.MaxLength,
		Gazetteer:     cfg.Model.SkillBackend == config.SkillBackendGazetteer,
	}, zl)
	if err != nil {
		zl.Fatal("❌ Failed to load models", zap.Error(err))
	}
	defer models.Close()

	db, err := config.InitDatabase(cfg, zl)
	if err != nil {
		zl.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	runRepo := repositories.NewMatchRunRepository(db)
	zl.Info("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.AcceptedPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zl.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	skillMatcher := scoring.NewSkillMatcher(scoring.NewSkillExtractor(models.SkillTagger))
	matcherService := services.NewMatcherService(models.Classifier, skillMatcher, services.MatcherOptions{
		BatchSize:  cfg.Matching.BatchSize,
		Timeout:    cfg.Matching.Timeout,
		MaxResumes: cfg.Matching.MaxResumes,
	}, zl)

	sessionService := services.NewSessionService(
		session.NewStore(),
		storageService,
		services.NewTextExtractor(),
		matcherService,
		cfg.Storage.MaxFileSize,
		zl,
	)
	reportService := services.NewReportService(zl)
	runService := services.NewMatchRunService(runRepo, matcherService, cfg.Matching.MaxResumes, zl)
	zl.Info("✅ Services initialized successfully")

	worker := services.NewWorker(
		runRepo,
		runService,
		cfg.Worker.Concurrency,
		cfg.Worker.PollInterval,
		zl,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	h := handlers.Handlers{
		Session: handlers.NewSessionHandler(sessionService, zl),
		Reports: handlers.NewReportHandler(sessionService, reportService, zl),
		Runs:    handlers.NewMatchRunHandler(runRepo, runService, sessionService, worker, zl),
	}

	if cfg.LegacyEnabled() {
		legacy, closer, err := newLegacyService(ctx, cfg, zl)
		if err != nil {
			zl.Fatal("❌ Failed to initialize legacy similarity", zap.Error(err))
		}
		if closer != nil {
			defer closer.Close()
		}
		h.Legacy = handlers.NewLegacyHandler(sessionService, legacy, zl)
	} else {
		zl.Info("ℹ️  GEMINI_API_KEY not set, /match/legacy disabled")
	}
	zl.Info("✅ Handlers initialized")

	app := handlers.NewApp(h, handlers.AppOptions{
		BodyLimit:    int(cfg.Storage.MaxRequestSize),
		RequestLog:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, zl)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zl.Info("🛑 Shutting down server...")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			zl.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zl.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zl.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// newLegacyService wires the Gemini encoder to Qdrant, or to the in-memory
// index when no Qdrant URL is configured. The returned closer may be nil.
func newLegacyService(ctx context.Context, cfg *config.Config, zl *zap.Logger) (services.LegacySimilarityService, io.Closer, error) {
	encoder, err := services.NewGeminiEncoder(ctx, cfg.Gemini.APIKey, cfg.Gemini.EmbedModel, zl)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Qdrant.URL == "" {
		zl.Info("✅ Legacy similarity uses the in-memory index")
		return services.NewLegacySimilarityService(encoder, services.NewMemoryIndex(), zl), nil, nil
	}

	index, err := services.NewQdrantIndex(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Qdrant.VectorSize,
		zl,
	)
	if err != nil {
		return nil, nil, err
	}
	if err := index.Init(ctx); err != nil {
		return nil, nil, err
	}
	zl.Info("✅ Qdrant initialized successfully")

	closer, _ := index.(io.Closer)
	return services.NewLegacySimilarityService(encoder, index, zl), closer, nil
}
