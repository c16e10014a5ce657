package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lesson-planner-api/api/swagger"
	"github.com/noah-isme/lesson-planner-api/internal/handler"
	"github.com/noah-isme/lesson-planner-api/internal/middleware"
	"github.com/noah-isme/lesson-planner-api/internal/models"
	"github.com/noah-isme/lesson-planner-api/internal/repository"
	"github.com/noah-isme/lesson-planner-api/internal/scheduling"
	"github.com/noah-isme/lesson-planner-api/internal/service"
	"github.com/noah-isme/lesson-planner-api/migrations"
	"github.com/noah-isme/lesson-planner-api/pkg/cache"
	"github.com/noah-isme/lesson-planner-api/pkg/config"
	"github.com/noah-isme/lesson-planner-api/pkg/database"
	"github.com/noah-isme/lesson-planner-api/pkg/jobs"
	"github.com/noah-isme/lesson-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lesson-planner-api/pkg/middleware/requestid"
)

// @title Lesson Planner API
// @version 1.0.0
// @description Recurring lesson scheduling for course progress
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if _, err := database.NewMigrator(db.DB, migrations.FS, ".", logr).Up(ctx); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, preview cache disabled", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.PreviewCacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	scheduleSvc := service.NewLessonScheduleService(
		repository.NewCourseProgressRepository(db),
		repository.NewRecurringSlotRepository(db),
		repository.NewLessonRepository(db),
		repository.NewLessonOccurrenceRepository(db),
		db,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.LessonScheduleConfig{
			Location:        cfg.Scheduler.Location(),
			MaxWeeks:        cfg.Scheduler.MaxWeeks,
			DefaultPolicy:   scheduling.LongLessonPolicy(cfg.Scheduler.DefaultPolicy),
			PreviewCacheTTL: cfg.Scheduler.PreviewCacheTTL,
		},
	)

	var (
		queue     *jobs.Queue
		refresher *service.ScheduleRefresher
	)
	if cfg.Scheduler.Enabled {
		worker := service.NewScheduleWorker(scheduleSvc, logr)
		queue = jobs.NewQueue("schedule-generation", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Scheduler.WorkerConcurrency,
			MaxRetries: cfg.Scheduler.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		if err := metrics.RegisterGauge("schedule_jobs_in_flight", "Generation jobs queued or running", func() float64 {
			return float64(queue.InFlight())
		}); err != nil {
			logr.Warn("failed to register queue gauge", zap.Error(err))
		}

		refresher, err = service.NewScheduleRefresher(scheduleSvc, queue, cfg.Scheduler.RefreshCron, cfg.Scheduler.Location(), logr)
		if err != nil {
			logr.Fatal("failed to configure schedule refresher", zap.Error(err))
		}
		refresher.Start(ctx)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db, cacheSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), authSvc, handler.NewAuthHandler(authSvc), handler.NewLessonScheduleHandler(scheduleSvc), metricsHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if refresher != nil {
		refresher.Stop()
	}
	if queue != nil {
		queue.Stop()
	}
}

func registerRoutes(
	api *gin.RouterGroup,
	tokens middleware.TokenValidator,
	authHandler *handler.AuthHandler,
	scheduleHandler *handler.LessonScheduleHandler,
	metricsHandler *handler.MetricsHandler,
) {
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(tokens), authHandler.Logout)
	auth.GET("/me", middleware.JWT(tokens), authHandler.Me)

	secured := api.Group("", middleware.JWT(tokens))

	planners := secured.Group("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin))
	planners.GET("/course-progress/:id/schedule", scheduleHandler.Get)
	planners.PUT("/course-progress/:id/schedule", scheduleHandler.Update)
	planners.POST("/course-progress/:id/schedule/conflicts", scheduleHandler.Conflicts)
	planners.POST("/course-progress/:id/schedule/preview", scheduleHandler.Preview)
	planners.GET("/course-progress/:id/schedule/export", scheduleHandler.Export)
	planners.POST("/schedule/generate", scheduleHandler.Generate)

	admins := secured.Group("/system", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admins.GET("/metrics", metricsHandler.Summary)
}
