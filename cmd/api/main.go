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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/config"
	"github.com/noah-isme/coursework-api/internal/database"
	"github.com/noah-isme/coursework-api/internal/events"
	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/repository"
	"github.com/noah-isme/coursework-api/internal/router"
	"github.com/noah-isme/coursework-api/internal/service"
	"github.com/noah-isme/coursework-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dashboard cache and event mirror disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events will not be published to nats")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	publisher := events.NewPublisher(natsConn, redisClient, events.Config{
		Source:        cfg.AppName,
		SubjectPrefix: cfg.NATSSubjectPrefix,
		RedisChannel:  cfg.EventsChannel,
	}, logger)

	uploader, err := newUploader(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.StorageProvider).Msg("failed to configure storage")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	historyRepo := repository.NewGradeHistoryRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, validate, logger)
	dashboardService := service.NewStudentDashboardService(enrollmentRepo, assignmentRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)
	followUps := service.FollowUps{
		Activity:  activityService,
		Publisher: publisher,
		Dashboard: dashboardService,
	}

	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, service.NewPolicy(), uploader, followUps, validate, logger)
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		Assignments:  assignmentRepo,
		Submissions:  submissionRepo,
		Courses:      courseRepo,
		Users:        userRepo,
		Enrollments:  enrollmentRepo,
		GradeHistory: historyRepo,
		Storage:      uploader,
		FollowUps:    followUps,
		MaxFileSize:  cfg.MaxUploadBytes,
	}, validate, logger)
	gradingService := service.NewGradingService(service.GradingDependencies{
		Assignments:  assignmentRepo,
		Submissions:  submissionRepo,
		Courses:      courseRepo,
		Users:        userRepo,
		GradeHistory: historyRepo,
		FollowUps:    followUps,
	}, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1<<20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:       handler.NewAssignmentHandler(assignmentService, cfg.MaxUploadBytes, logger),
		SubmissionHandler:       handler.NewSubmissionHandler(submissionService, gradingService, cfg.MaxUploadBytes, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		ActivityHandler:         handler.NewActivityHandler(activityService, logger),
		HealthProbes:            healthProbes(db, redisClient),
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func newUploader(cfg config.Config, logger zerolog.Logger) (storage.Uploader, error) {
	switch cfg.StorageProvider {
	case config.StorageCloudinary:
		return storage.NewCloudinary(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
	case config.StorageMinIO:
		return storage.NewMinIO(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
			PublicURL: cfg.MinIOPublicURL,
		}, logger)
	default:
		return storage.NewLocal(cfg.LocalStorageRoot, cfg.LocalPublicURL, logger)
	}
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
