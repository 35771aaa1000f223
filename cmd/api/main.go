package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/courselab-api/api/swagger"
	"github.com/noah-isme/courselab-api/internal/handler"
	"github.com/noah-isme/courselab-api/internal/repository"
	"github.com/noah-isme/courselab-api/internal/router"
	"github.com/noah-isme/courselab-api/internal/service"
	"github.com/noah-isme/courselab-api/migrations"
	"github.com/noah-isme/courselab-api/pkg/cache"
	"github.com/noah-isme/courselab-api/pkg/config"
	"github.com/noah-isme/courselab-api/pkg/database"
	"github.com/noah-isme/courselab-api/pkg/logger"
	"github.com/noah-isme/courselab-api/pkg/mailer"
	"github.com/noah-isme/courselab-api/pkg/reporting"
	"github.com/noah-isme/courselab-api/pkg/storage"
	"github.com/noah-isme/courselab-api/pkg/validation"
)

// @title CourseLab API
// @version 1.0.0
// @description Course catalog, enrollment ledger and role dashboards for a teaching lab.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	reporter := reporting.New(cfg, logr)
	defer reporter.Close()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, migrations.FS, "up"); err != nil {
			return err
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	sender, err := mailer.New(cfg.Mail, logr)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	exportDir, err := storage.NewDir(cfg.Export.Dir)
	if err != nil {
		return fmt.Errorf("init export dir: %w", err)
	}

	validate := validation.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	notifications := service.NewNotificationService(sender, service.NotificationConfig{
		Workers:      cfg.Notifications.Workers,
		Retries:      cfg.Notifications.Retries,
		RetryDelay:   cfg.Notifications.RetryDelay,
		AdminAddress: cfg.Mail.AdminAddress,
	}, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, userRepo, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, cacheSvc, userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, instructorRepo, cacheSvc, userRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Repo:        enrollmentRepo,
		Students:    studentRepo,
		Instructors: instructorRepo,
		Courses:     courseSvc,
		Notifier:    notifications,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Audit:       userRepo,
		Validator:   validate,
		Logger:      logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Repo:        dashboardRepo,
		Students:    studentRepo,
		Instructors: instructorRepo,
		Cache:       cacheSvc,
		CacheTTL:    cfg.Dashboard.CacheTTL,
		Logger:      logr,
	})
	feedbackSvc := service.NewFeedbackService(feedbackRepo, notifications, validate, logr)
	exportSvc := service.NewExportService(enrollmentSvc, exportDir, storage.NewSigner(cfg.Export.Secret, cfg.Export.TTL), service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		TTL:       cfg.Export.TTL,
	}, logr)
	go exportSvc.RunSweeper(ctx, sweepInterval)

	engine := router.New(router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Users:       handler.NewUserHandler(userSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Instructors: handler.NewInstructorHandler(instructorSvc),
		Courses:     handler.NewCourseHandler(courseSvc, enrollmentSvc, exportSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Feedback:    handler.NewFeedbackHandler(feedbackSvc),
		Exports:     handler.NewExportHandler(exportSvc),
		Metrics:     handler.NewMetricsHandler(metrics, notifications, db),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		AuthPerMinute:  cfg.RateLimit.AuthPerMinute,
		AuthBurst:      cfg.RateLimit.AuthBurst,
		Tokens:         authSvc,
		Audit:          userRepo,
		Requests:       metrics,
		Reporter:       reporter,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
