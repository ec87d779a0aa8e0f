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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ams-api/api/swagger"
	"github.com/noah-isme/ams-api/internal/handler"
	"github.com/noah-isme/ams-api/internal/repository"
	"github.com/noah-isme/ams-api/internal/router"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/cache"
	"github.com/noah-isme/ams-api/pkg/config"
	"github.com/noah-isme/ams-api/pkg/database"
	"github.com/noah-isme/ams-api/pkg/export"
	"github.com/noah-isme/ams-api/pkg/jobs"
	"github.com/noah-isme/ams-api/pkg/logger"
)

const purgeRefreshTokensJob = "purge_refresh_tokens"

// @title Attendance Management API
// @version 1.0.0
// @description Role-based academic attendance tracking for admins, teachers and students.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Analytics.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	app := wire(cfg, db, redisClient, metrics, logr)

	report, err := app.bootstrap.EnsureSingleAdmin(ctx, service.SeedAdmin{
		Email:    cfg.SeedAdmin.Email,
		Password: cfg.SeedAdmin.Password,
		Name:     cfg.SeedAdmin.Name,
	})
	if err != nil {
		logr.Fatal("failed to reconcile admin account", zap.Error(err))
	}
	logr.Info("admin account reconciled",
		zap.String("admin_id", report.AdminID),
		zap.Bool("created", report.Created),
		zap.Bool("promoted", report.Promoted),
		zap.Int("demoted", len(report.Demoted)))

	janitor := newTokenJanitor(app.tokens, metrics, cfg.Janitor, logr)
	janitor.Start(ctx)
	janitor.Every(cfg.Janitor.Interval, purgeRefreshTokensJob, nil)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	janitor.Stop()
}

type application struct {
	engine    *gin.Engine
	tokens    *service.TokenService
	bootstrap *service.BootstrapService
}

func wire(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) *application {
	validate := validator.New()

	users := repository.NewUserRepository(db)
	refreshTokens := repository.NewRefreshTokenRepository(db)
	batches := repository.NewBatchRepository(db)
	courses := repository.NewCourseRepository(db)
	timetable := repository.NewTimetableRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	assignments := repository.NewTeacherAssignmentRepository(db)
	attendance := repository.NewAttendanceRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	audits := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, cfg.AppName)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)
	tokenSvc := service.NewTokenService(refreshTokens, users, logr, service.TokenConfig{
		Secret:             cfg.JWT.Secret,
		Issuer:             cfg.JWT.Issuer,
		Audience:           cfg.JWT.Audience,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	authSvc := service.NewAuthService(users, tokenSvc, validate, logr)
	userSvc := service.NewUserService(users, batches, validate, logr)
	batchSvc := service.NewBatchService(batches, audits, validate, logr)
	courseSvc := service.NewCourseService(courses, batches, audits, validate, logr)
	timetableSvc := service.NewTimetableService(timetable, courses, audits, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, attendance, users, courses, cacheSvc, audits, validate, logr)
	assignmentSvc := service.NewTeacherAssignmentService(assignments, users, courses, audits, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendance, assignments, timetable, enrollments, courses, cacheSvc, metrics, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, metrics, logr)
	exportSvc := service.NewExportService(logr, export.NewCSVExporter(), export.NewPDFExporter())
	reportSvc := service.NewReportService(attendance, assignments, courses, users, enrollments, exportSvc, logr)

	dependents := map[string]handler.Pinger{
		"postgres": handler.PingFunc(db.PingContext),
		"redis":    nil,
	}
	if redisClient != nil {
		dependents["redis"] = cacheRepo
	}

	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AccessCookie:   cfg.Cookies.AccessName,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authSvc,
		MetricsService: metrics,
		AuditWriter:    audits,
		Logger:         logr,
	}, router.Handlers{
		Auth: handler.NewAuthHandler(authSvc, handler.CookieSettings{
			AccessName:  cfg.Cookies.AccessName,
			RefreshName: cfg.Cookies.RefreshName,
			Secure:      cfg.Cookies.Secure,
			Domain:      cfg.Cookies.Domain,
		}),
		Users:       handler.NewUserHandler(userSvc),
		Batches:     handler.NewBatchHandler(batchSvc),
		Courses:     handler.NewCourseHandler(courseSvc),
		Timetable:   handler.NewTimetableHandler(timetableSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Teacher:     handler.NewTeacherHandler(attendanceSvc, reportSvc),
		Student:     handler.NewStudentHandler(courseSvc, enrollmentSvc),
		Reports:     handler.NewReportHandler(reportSvc, service.ParseFormat),
		Analytics:   handler.NewAnalyticsHandler(analyticsSvc),
		Metrics:     handler.NewMetricsHandler(metrics, dependents),
	})

	return &application{
		engine:    engine,
		tokens:    tokenSvc,
		bootstrap: service.NewBootstrapService(users, logr),
	}
}

// newTokenJanitor builds the single-worker queue that purges expired and
// revoked refresh tokens older than the retention window.
func newTokenJanitor(tokens *service.TokenService, metrics *service.MetricsService, cfg config.JanitorConfig, logr *zap.Logger) *jobs.Queue {
	queue := jobs.NewQueue("token-janitor", jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Retries,
		RetryDelay: 30 * time.Second,
		Logger:     logr,
	})
	queue.Handle(purgeRefreshTokensJob, func(ctx context.Context, job jobs.Job) error {
		purged, err := tokens.PurgeExpired(ctx, time.Now().UTC().Add(-cfg.Retention))
		if err != nil {
			return err
		}
		metrics.RecordTokensPurged(purged)
		logr.Info("refresh tokens purged", zap.Int64("count", purged), zap.String("job_id", job.ID))
		return nil
	})
	return queue
}
