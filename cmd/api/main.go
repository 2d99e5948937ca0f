package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/linkboard/internal/config"
	"github.com/SergeiKhy/linkboard/internal/datasource"
	"github.com/SergeiKhy/linkboard/internal/handler"
	"github.com/SergeiKhy/linkboard/internal/middleware"
	"github.com/SergeiKhy/linkboard/internal/qr"
	"github.com/SergeiKhy/linkboard/internal/repository"
	"github.com/SergeiKhy/linkboard/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Выбор источника данных: боевой API или fixture для разработки
	var source datasource.ShortLinkDataSource
	switch cfg.DataSource.Mode {
	case "fixture":
		source = datasource.NewFixture(cfg.App.ShortDomain)
		logger.Info("Using fixture data source")
	default:
		source = datasource.NewRemote(datasource.RemoteConfig{
			BaseURL:           cfg.API.BaseURL,
			Token:             cfg.API.Token,
			Timeout:           cfg.API.Timeout,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
		}, logger)
		logger.Info("Using remote data source", zap.String("base_url", cfg.API.BaseURL))
	}

	// Кэш аналитики поверх Redis (опционален)
	var cache repository.AnalyticsCache
	if cfg.Redis.Host != "" {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		cache = repository.NewAnalyticsCache(redis)
		logger.Info("Connected to Redis")
	} else {
		logger.Info("Redis is not configured, facet cache disabled")
	}

	// Инициализация репозитория и сервисов
	linkRepo := repository.NewLinkRepository(source, logger)
	qrProvider := qr.NewProvider(cfg.QR.BaseURL)
	linkService := service.NewLinkService(linkRepo, qrProvider, logger)
	analyticsService := service.NewAnalyticsService(source, cache, logger)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	// Настройка роутера
	router := handler.NewRouter(handler.RouterDeps{
		Links:       handler.NewLinkHandler(linkService, linkRepo, logger),
		Analytics:   handler.NewAnalyticsHandler(analyticsService, qrProvider, logger),
		RateLimiter: rateLimiter,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		Logger:      logger,
	})

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
