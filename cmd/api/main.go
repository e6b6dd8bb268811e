package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	redisinfra "github.com/go-verify-api/internal/infrastructure/redis"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
	transporthttp "github.com/go-verify-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		slog.Error("dynamodb client", "err", err)
		os.Exit(1)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// The service starts with Redis down; codes then go to the durable record.
	redisClient := redisinfra.NewClient(cfg)
	defer redisClient.Close()
	pingCtx, cancelPing := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable at startup, running degraded", "addr", cfg.Redis.Addr, "err", err)
	}
	cancelPing()

	// Every verification flow ends in a signed token.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("jwt provider", "err", err)
		os.Exit(1)
	}

	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(ctx, cfg); err == nil {
			smsSender = sender
		} else {
			slog.Warn("SNS sender not available", "err", err)
		}
	}

	deps := &transporthttp.Deps{
		Users:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		Codes:       redisinfra.NewCodeStore(redisClient, cfg.Verification.CodeTTL),
		Cooldowns:   redisinfra.NewCooldownGuard(redisClient, cfg.Verification.CooldownWindows()),
		Mailer:      smtp.NewMailer(cfg),
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
		return
	}
	slog.Info("server stopped")
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
