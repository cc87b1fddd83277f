package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"petcare-be/internal/cart"
	"petcare-be/internal/catalog"
	"petcare-be/internal/config"
	"petcare-be/internal/db"
	"petcare-be/internal/events"
	"petcare-be/internal/httpapi"
	"petcare-be/internal/logger"
	"petcare-be/internal/middleware"
	"petcare-be/internal/order"
	"petcare-be/internal/telemetry"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc    = db.InitDB
	initRedisFunc = func(cfg *config.Config) *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	startServerFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, zap.String("version", version))
	defer logger.Sync()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		return err
	}

	database := initDBFunc(cfg)
	defer database.Close()

	rdb := initRedisFunc(cfg)
	defer rdb.Close()

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	defer publisher.Close()

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)
	go limiter.Run(ctx)

	handler, err := newServer(cfg, database, rdb, publisher, limiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      otelhttp.NewHandler(handler, telemetry.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		lg.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		lg.Warn("tracer shutdown failed", zap.Error(err))
	}

	lg.Info("server exited")
	return nil
}

func newServer(cfg *config.Config, database *sqlx.DB, rdb *redis.Client, publisher events.Publisher, limiter *middleware.RateLimiter) (http.Handler, error) {
	policy, err := cart.ParseFeePolicy(cfg.CartDeliveryFeePolicy)
	if err != nil {
		return nil, err
	}

	catalogRepo := catalog.NewRepository(database)
	cartSvc := cart.NewService(
		cart.NewRedisRepository(rdb, cfg.CartTTL),
		catalogRepo,
		cart.Reducer{FeePolicy: policy},
	)

	// a checkout makes at most eight sequential remote calls
	tracker := order.NewRedisAttemptTracker(rdb, 8*cfg.CheckoutCallTimeout)
	orderSvc := order.NewService(order.NewRepository(database), tracker, cartSvc, publisher, cfg.CheckoutCallTimeout)

	return httpapi.NewRouter(httpapi.Deps{
		Carts:          cartSvc,
		Orders:         orderSvc,
		Limiter:        limiter,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigin:  cfg.CORSAllowedOrigin,
		RequestTimeout: cfg.CheckoutCallTimeout,
		Checks: map[string]httpapi.HealthCheck{
			"postgres": database.PingContext,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
	}), nil
}
