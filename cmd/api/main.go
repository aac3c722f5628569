package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	_ "github.com/driftboard/auth-api/docs" // Swagger docs (generated)
	"github.com/driftboard/auth-api/internal/auth"
	"github.com/driftboard/auth-api/internal/config"
	"github.com/driftboard/auth-api/internal/database"
	"github.com/driftboard/auth-api/internal/email"
	httpServer "github.com/driftboard/auth-api/internal/http"
	"github.com/driftboard/auth-api/internal/logging"
	"github.com/driftboard/auth-api/internal/user"
)

// @title           Driftboard Auth API
// @version         1.0
// @description     Account authentication and session-token service: signup with email activation, credential login, access/refresh token lifecycle.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_provider", cfg.Auth.TokenProvider,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	userRepo := user.NewRepository(db)
	verificationRepo := auth.NewVerificationRepository(db)
	refreshRepo := auth.NewRedisRepository(redisClient)

	tokenService, err := newTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService := email.NewService(cfg.Email, logger)

	authService := auth.NewService(
		userRepo,
		verificationRepo,
		refreshRepo,
		tokenService,
		emailService,
		database.NewTransactor(db),
		logger,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)

	authHandler := auth.NewHandler(authService, logger)
	authMiddleware := auth.NewMiddleware(tokenService)

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// newTokenService builds the configured access-token signer. The signing
// key is loaded once here and shared read-only for the process lifetime.
func newTokenService(cfg config.AuthConfig) (auth.TokenService, error) {
	switch cfg.TokenProvider {
	case config.TokenProviderJWT:
		return auth.NewJWTService(cfg.SigningKey)
	default:
		return auth.NewPasetoService(cfg.SigningKey)
	}
}

// initDB initializes the database connection and returns a Bun DB instance.
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client.
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
