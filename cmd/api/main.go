package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"permit-portal-api/config"
	"permit-portal-api/controllers"
	"permit-portal-api/middleware"
	"permit-portal-api/monitor"
	"permit-portal-api/routes"
	"permit-portal-api/services"
	"permit-portal-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	migrate := flag.Bool("migrate", false, "create or update the workflow tables before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, logFile := config.InitLogging(cfg.Logging)
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := config.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}

	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer container.Close()

	var pinger monitor.Pinger
	if container.DB != nil {
		if *migrate {
			if err := config.Migrate(container.DB); err != nil {
				logger.Fatal("failed to migrate database", zap.Error(err))
			}
			logger.Info("database migrated")
		}
		sqlDB, err := container.DB.DB()
		if err != nil {
			logger.Fatal("failed to access connection pool", zap.Error(err))
		}
		pinger = sqlDB
	}

	if cfg.Server.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty; every token will be rejected")
	}

	router := gin.New()
	router.Use(middleware.RequestLogger(logger.Named("http")))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	if local, ok := container.Artifacts.(*storage.LocalArtifactStore); ok && cfg.Storage.PublicBaseURL != "" {
		router.Static(cfg.Storage.PublicBaseURL, local.Root())
	}

	workflow := controllers.NewWorkflowController(controllers.WorkflowDeps{
		Intake:         container.Intake,
		Lifecycle:      container.Lifecycle,
		Documents:      container.Documents,
		Deletion:       container.Deletion,
		Artifacts:      container.Artifacts,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger.Named("controllers"),
	})
	routes.SetupRoutes(router, routes.Dependencies{
		Workflow:  workflow,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		DB:        pinger,
		LogFile:   cfg.Logging.File,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.Database.Driver),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("lock", cfg.Lock.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown failed", zap.Error(err))
	}
}
