package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/edustack/timetable-api/internal/handler"
	"github.com/edustack/timetable-api/internal/middleware"
	"github.com/edustack/timetable-api/internal/models"
	"github.com/edustack/timetable-api/internal/repository"
	"github.com/edustack/timetable-api/internal/service"
	"github.com/edustack/timetable-api/pkg/cache"
	"github.com/edustack/timetable-api/pkg/config"
	"github.com/edustack/timetable-api/pkg/database"
	"github.com/edustack/timetable-api/pkg/logger"
	corsmiddleware "github.com/edustack/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edustack/timetable-api/pkg/middleware/requestid"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	classRepo := repository.NewClassRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	substitutionRepo := repository.NewSubstitutionRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	teacherService := service.NewTeacherService(teacherRepo, subjectRepo, validate, logr)
	subjectService := service.NewSubjectService(subjectRepo, validate, logr)
	classService := service.NewClassService(classRepo, subjectRepo, validate, logr)
	timetableService := service.NewTimetableService(
		timetableRepo, classRepo, teacherRepo, subjectRepo, userRepo,
		cacheService, metricsService, cfg.Scheduler, validate, logr)
	leaveService := service.NewLeaveService(
		leaveRepo, substitutionRepo, teacherRepo, timetableRepo, userRepo,
		metricsService, validate, logr)

	authHandler := handler.NewAuthHandler(authService)
	teacherHandler := handler.NewTeacherHandler(teacherService)
	subjectHandler := handler.NewSubjectHandler(subjectService)
	classHandler := handler.NewClassHandler(classService)
	timetableHandler := handler.NewTimetableHandler(timetableService, teacherService)
	leaveHandler := handler.NewLeaveHandler(leaveService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authService), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", adminOnly, teacherHandler.List)
		teachers.GET("/:id", adminOnly, teacherHandler.Get)
		teachers.POST("", adminOnly, teacherHandler.Create)
		teachers.PUT("/:id", adminOnly, teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.GET("", anyRole, subjectHandler.List)
		subjects.GET("/:id", anyRole, subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.PUT("/:id", adminOnly, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	classes := protected.Group("/classes")
	{
		classes.GET("", anyRole, classHandler.List)
		classes.GET("/:id", anyRole, classHandler.Get)
		classes.POST("", adminOnly, classHandler.Create)
		classes.PUT("/:id", adminOnly, classHandler.Update)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
	}

	timetables := protected.Group("/timetables")
	{
		timetables.POST("/generate", adminOnly, timetableHandler.Generate)
		timetables.GET("", anyRole, timetableHandler.List)
		timetables.GET("/me", anyRole, timetableHandler.MyTimetable)
		timetables.GET("/teachers/:id", adminOnly, timetableHandler.TeacherView)
		timetables.GET("/:class", anyRole, timetableHandler.GetByClass)
		timetables.GET("/:class/export/csv", anyRole, timetableHandler.ExportCSV)
		timetables.GET("/:class/export/pdf", anyRole, timetableHandler.ExportPDF)
		timetables.DELETE("", adminOnly,
			middleware.Audit(userRepo, models.AuditActionTimetableDelete, "timetable"),
			timetableHandler.DeleteAll)
		timetables.DELETE("/:class", adminOnly,
			middleware.Audit(userRepo, models.AuditActionTimetableDelete, "timetable"),
			timetableHandler.DeleteByClass)
	}

	leaves := protected.Group("/leaves")
	{
		leaves.POST("", anyRole, leaveHandler.Apply)
		leaves.GET("/me", anyRole, leaveHandler.MyLeaves)
		leaves.GET("/pending", adminOnly, leaveHandler.Pending)
		leaves.POST("/:id/approve", adminOnly, leaveHandler.Approve)
		leaves.POST("/:id/reject", adminOnly, leaveHandler.Reject)
		leaves.GET("/:id/substitutions", adminOnly, leaveHandler.SubstitutionsForLeave)
	}

	protected.GET("/metrics/summary", adminOnly, metricsHandler.Summary)

	substitutions := protected.Group("/substitutions")
	{
		substitutions.GET("", adminOnly, leaveHandler.Substitutions)
		substitutions.GET("/:id/free-teachers", adminOnly, leaveHandler.FreeTeachers)
		substitutions.PUT("/:id/assign", adminOnly, leaveHandler.AssignSubstitute)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
