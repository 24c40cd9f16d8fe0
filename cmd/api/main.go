package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-backtest/internal/api/handlers"
	"signal-backtest/internal/api/middleware"
	"signal-backtest/internal/data"
	"signal-backtest/internal/logging"
	"signal-backtest/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	log := logging.NewLogger(os.Getenv("LOG_LEVEL"))

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	tickerDir := handlers.TickerDirFromEnv()
	if info, err := os.Stat(tickerDir); err == nil && info.IsDir() {
		log.Info().Str("dir", tickerDir).Msg("ticker directory found")
	} else {
		log.Warn().Err(err).Str("dir", tickerDir).Msg("ticker directory not found")
	}

	barsCache := data.BarsCacheFromEnv()
	if barsCache != nil {
		log.Warn().Msg("bar cache enabled; do not use in production")
	}

	// Set up Gin router
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.CORS(middleware.ParseOrigins(os.Getenv("CORS_ORIGINS"))))
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))

	// Initialize handlers
	backtestHandler := handlers.NewBacktestHandler(handlers.BacktestHandlerOptions{
		TickerDir:   tickerDir,
		APIKey:      os.Getenv("TWELVE_API_KEY"),
		BarsCache:   barsCache,
		RunCacheTTL: data.DurationFromEnv("RUN_CACHE_TTL", time.Hour),
		Logger:      log,
	})
	tickerHandler := handlers.NewTickerHandler(tickerDir, log)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/backtest", backtestHandler.RunBacktest)
		api.GET("/backtest/:id", backtestHandler.GetBacktest)
		api.POST("/backtest/compare", backtestHandler.CompareBacktests)

		api.GET("/tickers", tickerHandler.ListTickers)
		api.GET("/parameters", handlers.ListParameters)
		api.GET("/intervals", handlers.ListIntervals)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go backtestHandler.Janitor(ctx, 5*time.Minute)
	if barsCache != nil {
		go barsCache.Janitor(ctx, 5*time.Minute)
	}

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
