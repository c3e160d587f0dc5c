package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/berktorunDev/go-archetype/config"
	"github.com/berktorunDev/go-archetype/httperror"
	"github.com/berktorunDev/go-archetype/logging"
	"github.com/berktorunDev/go-archetype/middleware"
	"github.com/berktorunDev/go-archetype/ratelimiter"
	"github.com/berktorunDev/go-archetype/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Server.Development)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	recorder, closeRecorder := buildRecorder(cfg.Stats, logger)
	defer closeRecorder()

	router, err := buildRouter(cfg, logger, recorder)
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildRouter assembles the gin engine: recovery and audit first, then the
// rate limiter, then the demo routes.
func buildRouter(cfg config.Config, logger *zap.Logger, recorder stats.Recorder) (*gin.Engine, error) {
	if !cfg.Server.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	limitCfg := middleware.Config{
		Global: cfg.RateLimit,
		Groups: map[string]ratelimiter.Policy{
			// Everything under /api shares this budget unless a route pins
			// its own.
			"/api": {Limit: 20, Duration: 1, Unit: ratelimiter.UnitMinute},
		},
		Routes: map[string]ratelimiter.Policy{
			"GET /api/hello": {Limit: 5, Duration: 60, Unit: ratelimiter.UnitSecond},
		},
	}

	opts := []middleware.Option{
		middleware.WithLogger(logging.NewZapAdapter(logger)),
	}
	if recorder != nil {
		opts = append(opts, middleware.WithRecorder(recorder))
	}

	limit, err := middleware.RateLimiter(limitCfg, opts...)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(httperror.Recovery(logger))
	if cfg.Audit.Enabled {
		router.Use(middleware.Audit(logger))
	}
	router.NoRoute(httperror.NoRoute)
	router.NoMethod(httperror.NoMethod)

	// Health stays outside the limited group.
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", limit)
	api.GET("/hello", func(c *gin.Context) {
		c.String(http.StatusOK, "Hello, World!")
	})
	api.GET("/greet", func(c *gin.Context) {
		c.String(http.StatusOK, "Greetings!")
	})

	return router, nil
}

// buildRecorder picks the stats backend. The returned func releases whatever
// the backend holds open.
func buildRecorder(cfg config.StatsConfig, logger *zap.Logger) (stats.Recorder, func()) {
	switch cfg.Backend {
	case config.StatsMemory:
		return stats.NewMemory(), func() {}
	case config.StatsRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return stats.NewRedis(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", zap.Error(err))
			}
		}
	default:
		return nil, func() {}
	}
}
