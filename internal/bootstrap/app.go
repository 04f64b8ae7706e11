package bootstrap

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/negativepl/checkout-gateway/internal/config"
	infraRedis "github.com/negativepl/checkout-gateway/internal/infrastructure/redis"
	"github.com/negativepl/checkout-gateway/internal/observability"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Redis   *goredis.Client
	Metrics *observability.Metrics
}

// New loads configuration and brings up the ambient pieces every binary
// needs: logging, optional tracing, metrics and the optional Redis
// connection. Provider and service wiring stays in main.
func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Str("environment", cfg.Environment).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)

	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Msg("Connected to Redis")
	} else {
		logger.Info().Msg("Redis disabled, idempotency replay protection off")
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Redis:   redisClient,
		Metrics: metrics,
	}, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
}
