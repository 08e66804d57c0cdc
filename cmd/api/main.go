package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/config"
	"github.com/noah-isme/asset-review-api/internal/database"
	"github.com/noah-isme/asset-review-api/internal/handler"
	"github.com/noah-isme/asset-review-api/internal/middleware"
	"github.com/noah-isme/asset-review-api/internal/repository"
	"github.com/noah-isme/asset-review-api/internal/router"
	"github.com/noah-isme/asset-review-api/internal/service"
	"github.com/noah-isme/asset-review-api/pkg/storage"
	"github.com/noah-isme/asset-review-api/pkg/vision"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer func() {
			if err := natsConn.Drain(); err != nil {
				logger.Warn().Err(err).Msg("failed to drain nats connection")
			}
		}()
	}

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.StorageProvider).Msg("failed to initialise object storage")
	}

	reviewer, err := vision.NewOpenAIReviewer(vision.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.OpenAIBaseURL,
		Model:     cfg.VisionModel,
		MaxTokens: cfg.VisionMaxTokens,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vision client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assetTypeRepo := repository.NewAssetTypeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	seeded, err := service.NewSeedService(assetTypeRepo, logger).SeedDefaults(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed asset types")
	}
	if seeded > 0 {
		logger.Info().Int("count", seeded).Msg("seeded preset asset types")
	}

	uploads := service.NewUploadStager(cfg.UploadTempDir, cfg.UploadMaxSizeMB, logger)
	settingsService := service.NewSettingsService(settingRepo, logger)
	dashboardService := service.NewDashboardService(submissionRepo, settingsService, redisClient, cfg.DashboardTTL, logger)
	feed := service.NewSubmissionFeed(natsConn, cfg.NATSSubject, logger)
	feed.Start(ctx)

	reviewService := service.NewReviewService(service.ReviewDependencies{
		AssetTypes:   assetTypeRepo,
		Submissions:  submissionRepo,
		Settings:     settingsService,
		Reviewer:     reviewer,
		Store:        store,
		Uploads:      uploads,
		Feed:         feed,
		Dashboard:    dashboardService,
		SignedURLTTL: cfg.SignedURLTTL,
	}, logger)
	assetTypeService := service.NewAssetTypeService(assetTypeRepo, store, uploads, validate, cfg.SignedURLTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, store, validate, cfg.SignedURLTTL, logger)
	authService := service.NewAuthService(cfg.AdminPassword, cfg.JWTSecret, cfg.AdminTokenTTL, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes()) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReviewHandler:          handler.NewReviewHandler(reviewService, cfg.UploadMaxSizeMB, logger),
		AssetTypeHandler:       handler.NewAssetTypeHandler(assetTypeService, logger),
		AuthHandler:            handler.NewAuthHandler(authService, logger),
		AdminAssetTypeHandler:  handler.NewAdminAssetTypeHandler(assetTypeService, cfg.UploadMaxSizeMB, logger),
		AdminSubmissionHandler: handler.NewAdminSubmissionHandler(submissionService, feed, logger),
		AdminDashboardHandler:  handler.NewAdminDashboardHandler(dashboardService, logger),
		AdminSettingsHandler:   handler.NewAdminSettingsHandler(settingsService, dashboardService, validate, logger),
		HealthProbes:           healthProbes(db, redisClient),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("asset review api listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func newObjectStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (storage.ObjectStore, error) {
	switch cfg.StorageProvider {
	case "cloudinary":
		return storage.NewCloudinaryStore(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	case "memory":
		logger.Warn().Msg("using in-memory object storage; uploads are lost on restart")
		return storage.NewMemoryStore(), nil
	default:
		store, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
