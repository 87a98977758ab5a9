package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"account-ledger/config"
	kafkaEvents "account-ledger/internal/adapter/events/kafka"
	httpHandler "account-ledger/internal/adapter/http/handler"
	"account-ledger/internal/adapter/http/middleware"
	memStorage "account-ledger/internal/adapter/storage/memory"
	pgStorage "account-ledger/internal/adapter/storage/postgres"
	redisStorage "account-ledger/internal/adapter/storage/redis"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/service"
	"account-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage groups the repositories of the selected backend.
type storage struct {
	accounts     ports.AccountRepository
	transactions ports.TransactionRepository
	idempotency  ports.IdempotencyRepository
	transactor   ports.DBTransactor
	health       []ports.HealthChecker
	close        func()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Ledger.Storage).
		Str("lock_backend", cfg.Ledger.LockBackend).
		Int("port", cfg.Server.Port).
		Msg("Starting account ledger")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.close()

	healthCheckers := store.health

	var (
		idempotencyCache ports.IdempotencyCache
		rateLimiter      ports.RateLimiter
		locker           ports.AccountLocker = memStorage.NewAccountLocker(cfg.Ledger.LockTimeout)
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		idempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
		if cfg.Ledger.LockBackend == config.LockRedis {
			locker = redisStorage.NewAccountLocker(rdb, cfg.Ledger.LockTimeout, cfg.Ledger.LockExpiry)
		}
		if cfg.RateLimit.Enabled {
			rateLimiter = redisStorage.NewRateLimitStore(rdb)
			log.Info().
				Int64("requests", cfg.RateLimit.Requests).
				Dur("window", cfg.RateLimit.Window).
				Msg("Per-principal rate limit enabled")
		}
	}

	var events ports.EventPublisher
	if cfg.Kafka.Enabled {
		writer := kafkaEvents.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.WriteTimeout)
		publisher := kafkaEvents.NewPublisher(writer, cfg.Kafka.WriteTimeout, logger.Component(log, "kafka"))
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close event publisher")
			}
		}()
		events = publisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Movement events enabled")
	}

	idGen, err := service.NewIBANGenerator(cfg.Ledger.BankCode)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identifier generator")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	ledgerSvc := service.NewLedgerService(
		store.accounts,
		store.transactions,
		store.idempotency,
		idempotencyCache,
		locker,
		store.transactor,
		idGen,
		events,
		cfg.Ledger.IdempotencyTTL,
		logger.Component(log, "ledger"),
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Ledger:         ledgerSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: healthCheckers,
		Logger:         log,
		RateLimiter:    rateLimiter,
		RateLimit: middleware.RateLimitRule{
			Limit:  cfg.RateLimit.Requests,
			Window: cfg.RateLimit.Window,
		},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Ledger.Storage == config.StorageMemory {
		mem := memStorage.NewStore()
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return &storage{
			accounts:     memStorage.NewAccountRepo(mem),
			transactions: memStorage.NewTransactionRepo(mem),
			idempotency:  memStorage.NewIdempotencyRepo(mem),
			transactor:   memStorage.NewTransactor(mem),
			close:        func() {},
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.DSN(), log); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PostgreSQL connected")

	return &storage{
		accounts:     pgStorage.NewAccountRepo(pool),
		transactions: pgStorage.NewTransactionRepo(pool),
		idempotency:  pgStorage.NewIdempotencyRepo(pool),
		transactor:   pgStorage.NewTransactor(pool, cfg.Ledger.LockTimeout),
		health:       []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
		close:        pool.Close,
	}, nil
}
