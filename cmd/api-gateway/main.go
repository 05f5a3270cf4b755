package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-records-api/api/swagger"
	"github.com/noah-isme/uni-records-api/internal/handler"
	"github.com/noah-isme/uni-records-api/internal/middleware"
	"github.com/noah-isme/uni-records-api/internal/relation"
	"github.com/noah-isme/uni-records-api/internal/service"
	"github.com/noah-isme/uni-records-api/internal/store"
	"github.com/noah-isme/uni-records-api/pkg/cache"
	"github.com/noah-isme/uni-records-api/pkg/config"
	"github.com/noah-isme/uni-records-api/pkg/database"
	"github.com/noah-isme/uni-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-records-api/pkg/middleware/requestid"
)

// @title University Records API
// @version 0.1.0
// @description Records administration backend for students, courses, departments, announcements and examinations
// @BasePath /
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

	var entityStore store.Store
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to database", "error", err)
		}
		defer db.Close() //nolint:errcheck
		entityStore = store.NewPostgres(db)
	default:
		entityStore = store.NewMemory()
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(redisClient, cfg.Cache.TTL, logr, metricsSvc)
	}

	relations := relation.NewManager(entityStore, relation.Options{
		LockWait:      cfg.Enrollment.LockWait,
		MaxRetries:    cfg.Enrollment.MaxRetries,
		RetryBackoff:  cfg.Enrollment.RetryBackoff,
		CascadePasses: cfg.Enrollment.CascadePasses,
	}, logr, metricsSvc)

	studentSvc := service.NewStudentService(entityStore, relations, nil, logr)
	courseSvc := service.NewCourseService(entityStore, relations, nil, logr)
	departmentSvc := service.NewDepartmentService(entityStore, nil, logr)
	announcementSvc := service.NewAnnouncementService(entityStore, cacheSvc, nil, logr)
	examinationSvc := service.NewExaminationService(entityStore, nil, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	students := handler.NewStudentHandler(studentSvc)
	api.GET("/students", students.List)
	api.POST("/students", students.Create)
	api.GET("/students/:id", students.Get)
	api.PUT("/students/:id", students.Update)
	api.DELETE("/students/:id", students.Delete)

	courses := handler.NewCourseHandler(courseSvc)
	api.GET("/courses", courses.List)
	api.POST("/courses", courses.Create)
	api.GET("/courses/:id", courses.Get)
	api.PUT("/courses/:id", courses.Update)
	api.DELETE("/courses/:id", courses.Delete)
	api.POST("/courses/:id/enrollments", courses.Enroll)
	api.DELETE("/courses/:id/enrollments/:studentId", courses.Unenroll)

	departments := handler.NewDepartmentHandler(departmentSvc)
	api.GET("/departments", departments.List)
	api.POST("/departments", departments.Create)
	api.GET("/departments/:id", departments.Get)
	api.PUT("/departments/:id", departments.Update)
	api.DELETE("/departments/:id", departments.Delete)

	announcements := handler.NewAnnouncementHandler(announcementSvc)
	api.GET("/announcements", announcements.List)
	api.POST("/announcements", announcements.Create)
	api.GET("/announcements/:id", announcements.Get)
	api.PUT("/announcements/:id", announcements.Update)
	api.DELETE("/announcements/:id", announcements.Delete)

	examinations := handler.NewExaminationHandler(examinationSvc)
	api.GET("/examinations", examinations.List)
	api.POST("/examinations", examinations.Create)
	api.GET("/examinations/:id", examinations.Get)
	api.PUT("/examinations/:id", examinations.Update)
	api.DELETE("/examinations/:id", examinations.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
