package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"grocery-autocart/internal/api"
	"grocery-autocart/internal/automation"
	"grocery-autocart/internal/browser"
	"grocery-autocart/internal/config"
	"grocery-autocart/internal/ratelimit"
	"grocery-autocart/internal/store"
)

const (
	rateLimitPerHour = 100
	rateLimitBurst   = 10
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting grocery-autocart",
		zap.String("addr", cfg.Addr),
		zap.Bool("mock_mode", cfg.MockMode),
		zap.String("browser_mode", cfg.BrowserMode))

	durable, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer durable.Close()

	cache := store.NewMemoryCache(cfg.CacheTTL)
	defer cache.Stop()

	sessions := store.NewLayered(cache, durable, logger)

	browserMgr := browser.NewManager(cfg, logger)
	orchestrator := automation.New(browserMgr, sessions, cfg, logger)

	limiter := ratelimit.NewLimiter(rateLimitPerHour, rateLimitBurst)
	handler := api.NewHandler(orchestrator, sessions, cfg.MockMode, logger)
	router := handler.SetupRoutes(limiter, rateLimitPerHour)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // automation sequences are long-running
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown was not clean", zap.Error(err))
	}
	browserMgr.Shutdown(ctx)

	logger.Info("stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
