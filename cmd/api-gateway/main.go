package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/school-portal-api/api/swagger"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/cache"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/export"
	"github.com/noah-isme/school-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-portal-api/pkg/storage"
)

// @title School Portal API
// @version 1.0.0
// @description Data-integrity core for the school portal: users, classes, subjects, assignments, attendance, assessments and feedback.
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}

	scheduleStore, err := storage.NewLocalStorage(cfg.Storage.ScheduleDir)
	if err != nil {
		logr.Sugar().Fatalw("schedule storage init failed", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	markRepo := repository.NewMarkRepository(db)
	doubtRepo := repository.NewDoubtRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-portal-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	classService := service.NewClassService(classRepo, scheduleStore, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, classRepo, subjectRepo, validate, logr)

	var reportCache service.ReportCache
	if cacheRepo != nil {
		reportCache = cacheRepo
	}
	attendanceService := service.NewAttendanceService(attendanceRepo, assignmentRepo, reportCache, cfg.Cache.ReportTTL, validate, logr)
	assessmentService := service.NewAssessmentService(assessmentRepo, markRepo, assignmentRepo, classRepo, reportCache, cfg.Cache.ReportTTL, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	doubtService := service.NewDoubtService(doubtRepo, assignmentRepo, validate, logr)
	feedbackService := service.NewFeedbackService(feedbackRepo, validate, logr)
	metricsService := service.NewMetricsService()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	metricsHandler := handler.NewMetricsHandler(metricsService)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		User:       handler.NewUserHandler(userService),
		Class:      handler.NewClassHandler(classService, assignmentService),
		Subject:    handler.NewSubjectHandler(subjectService),
		Assignment: handler.NewAssignmentHandler(assignmentService),
		Attendance: handler.NewAttendanceHandler(attendanceService),
		Assessment: handler.NewAssessmentHandler(assessmentService),
		Doubt:      handler.NewDoubtHandler(doubtService),
		Feedback:   handler.NewFeedbackHandler(feedbackService),
		Metrics:    metricsHandler,
	}, authService)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
