package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/batchmind/internal/config"
	apperrors "github.com/ZanzyTHEbar/batchmind/internal/errors"
	"github.com/ZanzyTHEbar/batchmind/internal/monitoring"
)

const shutdownTimeout = 15 * time.Second

// @title BatchMind API
// @version 1.0
// @description Batch deviation risk scoring, explanations and live monitoring.
// @BasePath /
func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $BATCHMIND_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(cfg.Logging.Level)
	slog.SetDefault(logger.Logger)
	gin.SetMode(cfg.Server.GinMode)

	model, err := loadModel(cfg)
	if err != nil {
		exitOnStartupError(logger, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, model, logger)
	if err != nil {
		exitOnStartupError(logger, err)
	}
	app.start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           setupRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.SystemLogger("server_start", "listening on :"+cfg.Server.Port+" with model "+app.service.ModelName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.SystemLogger("server_shutdown", "shutting down")

	// live mode stops before the hub and background loops see the cancelled context
	app.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

func exitOnStartupError(logger *monitoring.Logger, err error) {
	appErr := apperrors.ToAppError(err)
	logger.Error(appErr.ErrBuilder.Msg,
		"category", appErr.Category,
		"cause", appErr.Unwrap())
	os.Exit(1)
}
