package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/loocor/rules-editor/internal/api"
	"github.com/loocor/rules-editor/internal/api/handlers"
	"github.com/loocor/rules-editor/internal/repository"
	"github.com/loocor/rules-editor/internal/services"
	"github.com/loocor/rules-editor/internal/simulator"
	"github.com/loocor/rules-editor/pkg/config"
	"github.com/loocor/rules-editor/pkg/database"
	"github.com/loocor/rules-editor/pkg/logger"
)

// @title           Decision Graph Editor API
// @version         1.0
// @description     Backend for the decision-graph editor: document persistence with acyclicity validation, envelope import/export, and simulation forwarding.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting decision graph editor",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	simRepo := repository.NewSimulationRepository(db)

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	runner := simulator.NewClient(cfg.SimulatorURL, cfg.SimulatorTimeout)
	defer runner.Close()

	docSvc := services.NewDocumentService(docRepo)
	simSvc := services.NewSimulationService(docSvc, simRepo, runner, asynqClient)
	authSvc := services.NewAuthService(userRepo, jwtSecret)

	router := api.NewRouter(api.Dependencies{
		HMACSecret:         jwtSecret,
		AuthHandler:        handlers.NewAuthHandler(authSvc),
		DocumentsHandler:   handlers.NewDocumentsHandler(docSvc),
		SimulationsHandler: handlers.NewSimulationsHandler(simSvc),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
