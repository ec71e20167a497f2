package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/Neyfan/zama-dca-bot-batching/config"
	"github.com/Neyfan/zama-dca-bot-batching/internal/adapter/ledger"
	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	apihandler "github.com/Neyfan/zama-dca-bot-batching/internal/handler/api"
	"github.com/Neyfan/zama-dca-bot-batching/internal/repository/memory"
	"github.com/Neyfan/zama-dca-bot-batching/internal/repository/postgres"
	redisrepo "github.com/Neyfan/zama-dca-bot-batching/internal/repository/redis"
	"github.com/Neyfan/zama-dca-bot-batching/internal/usecase"
	"github.com/Neyfan/zama-dca-bot-batching/internal/worker"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/auth"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Close()

	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Batcher exited with error", logger.ErrorField(err))
		os.Exit(1)
	}
	logger.Info("Batcher exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	metricsHandler := observability.NewMetricsHandler(cfg.App.Name)

	// Ledger client
	dialCtx, cancelDial := context.WithTimeout(ctx, cfg.Ledger.Timeout)
	ledgerClient, err := ledger.Dial(dialCtx, cfg.Ledger)
	cancelDial()
	if err != nil {
		return fmt.Errorf("failed to initialize ledger client: %w", err)
	}

	logger.Info("Batcher bot started",
		logger.String("contract", ledgerClient.Address()),
		logger.String("sender", ledgerClient.Sender()),
	)

	// Outcome journal
	journal, closeJournal, err := openJournal(ctx, cfg, metricsHandler)
	if err != nil {
		return err
	}
	defer closeJournal()

	// Core
	queue := memory.NewOrderQueue()
	orderUC := usecase.NewOrderUsecase(queue, ledgerClient, journal, usecase.OrderUsecaseConfig{
		LedgerTimeout: cfg.Ledger.Timeout,
	})
	drainWorker := worker.NewDrainWorker(orderUC, worker.DrainWorkerConfig{
		Interval: cfg.Drain.Interval,
	})

	// HTTP
	var authService domain.AuthService
	if cfg.Auth.AuthEnabled() {
		authService = auth.NewJWTAuthService(cfg.Auth)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(observability.ObservabilityMiddleware())
	router.Use(apihandler.RecoveryMiddleware())
	router.Use(corsMiddleware())
	router.Use(bodyLimitMiddleware(cfg.API.MaxRequestSize))

	metricsHandler.Register(router)
	apihandler.SetupRoutes(router, apihandler.NewOrderHandler(orderUC), authService)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server",
			logger.String("port", cfg.App.Port),
			logger.String("environment", cfg.App.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return drainWorker.Start(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...",
			logger.Int("pending_orders", queue.Len()),
		)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", logger.ErrorField(err))
		}
		return nil
	})

	return g.Wait()
}

// openJournal connects the configured outcome journal. The returned closer is
// always safe to call.
func openJournal(ctx context.Context, cfg *config.Config, metricsHandler *observability.MetricsHandler) (domain.OutcomeJournal, func(), error) {
	switch cfg.Journal.Driver {
	case config.JournalDriverPostgres:
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.GetDSN())
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
		}
		db.SetMaxIdleConns(cfg.Database.MaxIdle)
		db.SetMaxOpenConns(cfg.Database.MaxOpen)
		db.SetConnMaxLifetime(cfg.Database.MaxLife)

		repo := postgres.NewOutcomeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, func() {}, err
		}
		metricsHandler.AddReadinessCheck("postgres", db.PingContext)

		logger.Info("Outcome journal ready", logger.String("driver", cfg.Journal.Driver))
		return repo, func() { db.Close() }, nil

	case config.JournalDriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, func() {}, fmt.Errorf("failed to connect to redis: %w", err)
		}

		repo := redisrepo.NewOutcomeRepository(rdb, cfg.Journal.RedisKey, cfg.Journal.RedisLimit)
		metricsHandler.AddReadinessCheck("redis", repo.Ping)

		logger.Info("Outcome journal ready", logger.String("driver", cfg.Journal.Driver))
		return repo, func() { rdb.Close() }, nil

	default:
		logger.Info("Outcome journal disabled")
		return nil, func() {}, nil
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Trace-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
