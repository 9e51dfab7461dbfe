package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/emadrasa/emadrasa-api/api/swagger"
	"github.com/emadrasa/emadrasa-api/internal/handler"
	"github.com/emadrasa/emadrasa-api/internal/repository"
	"github.com/emadrasa/emadrasa-api/internal/router"
	"github.com/emadrasa/emadrasa-api/internal/service"
	"github.com/emadrasa/emadrasa-api/pkg/cache"
	"github.com/emadrasa/emadrasa-api/pkg/config"
	"github.com/emadrasa/emadrasa-api/pkg/database"
	"github.com/emadrasa/emadrasa-api/pkg/logger"
	corsmiddleware "github.com/emadrasa/emadrasa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/emadrasa/emadrasa-api/pkg/middleware/requestid"
)

// @title eMadrasa API
// @version 1.0.0
// @description School management API with schedule conflict detection and enrollment capacity control
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	}

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})

	scheduleSvc := service.NewScheduleService(scheduleRepo, classRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(
		schoolRepo, teacherRepo, studentRepo, classRepo, subjectRepo,
		enrollmentRepo, scheduleSvc, cacheSvc, metricsSvc, cfg.Dashboard.CacheTTL, logr)

	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, schoolRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, enrollmentRepo, schoolRepo, dashboardSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, scheduleRepo, scheduleSvc, schoolRepo, teacherRepo, subjectRepo, dashboardSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, classRepo, dashboardSvc, validate, logr)
	exportSvc := service.NewExportService(classRepo, enrollmentRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	router.Register(r, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		School:     handler.NewSchoolHandler(schoolSvc),
		Teacher:    handler.NewTeacherHandler(teacherSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Subject:    handler.NewSubjectHandler(subjectSvc),
		Class:      handler.NewClassHandler(classSvc, scheduleSvc, enrollmentSvc, exportSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Schedule:   handler.NewScheduleHandler(scheduleSvc),
		Dashboard:  handler.NewDashboardHandler(dashboardSvc),
	}, router.Deps{
		Auth:    authSvc,
		Metrics: metricsSvc,
		Users:   userRepo,
		DB:      db,
		Prefix:  cfg.APIPrefix,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
