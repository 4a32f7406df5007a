package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/arahkita/arah-go-api/internal/cache"
	"github.com/arahkita/arah-go-api/internal/config"
	"github.com/arahkita/arah-go-api/internal/database"
	"github.com/arahkita/arah-go-api/internal/handler"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/models"
	"github.com/arahkita/arah-go-api/internal/realtime"
	"github.com/arahkita/arah-go-api/internal/repository"
	"github.com/arahkita/arah-go-api/internal/roadmapgen"
	"github.com/arahkita/arah-go-api/internal/router"
	"github.com/arahkita/arah-go-api/internal/service"
	"github.com/arahkita/arah-go-api/internal/store"
	"github.com/arahkita/arah-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Roadmap{},
		&models.RoadmapStep{},
		&models.RoadmapSkill{},
		&models.RoadmapTool{},
		&models.RoadmapResource{},
		&models.TimelineEntry{},
		&models.UserPreference{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, change feed stays single node")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	generator, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.GenerationModel,
		MaxTokens: cfg.GenerationTokens,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("failed to create generation backend: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	roadmapRepo := repository.NewRoadmapRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	localCache := cache.NewRoadmapCache(redisClient, cfg.LocalCacheTTL, logger)
	dualStore := store.New(roadmapRepo, localCache, logger)

	generationClient := roadmapgen.NewClient(generator, roadmapgen.ClientConfig{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		MaxTokens:   cfg.GenerationTokens,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := realtime.NewFeed(redisClient, "arah:changes", natsConn, logger)
	feed.Start(ctx)
	reconciler := realtime.NewReconciler(feed, dualStore, logger)

	noticeService := service.NewNoticeService(redisClient, "arah", natsConn, logger)
	noticeService.Start(ctx)

	syncService := service.NewSyncService(dualStore, generationClient, noticeService, feed, reconciler, validate, logger)
	templateService := service.NewTemplateService(syncService, logger)
	preferenceService := service.NewPreferenceService(preferenceRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoadmapHandler:    handler.NewRoadmapHandler(syncService, logger),
		GenerationHandler: handler.NewGenerationHandler(syncService, logger),
		TemplateHandler:   handler.NewTemplateHandler(templateService, logger),
		PreferenceHandler: handler.NewPreferenceHandler(preferenceService, logger),
		RealtimeHandler:   handler.NewRealtimeHandler(noticeService, feed, syncService, logger),
		SessionMiddleware: middleware.Session(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
