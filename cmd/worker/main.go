package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"

	"github.com/CodeNow/pheidi-sub000/internal/app/migrate"
	"github.com/CodeNow/pheidi-sub000/internal/gateway/github"
	httpx "github.com/CodeNow/pheidi-sub000/internal/http"
	"github.com/CodeNow/pheidi-sub000/internal/queue"
	"github.com/CodeNow/pheidi-sub000/internal/repository/postgres"
	"github.com/CodeNow/pheidi-sub000/internal/service/chat"
	"github.com/CodeNow/pheidi-sub000/internal/service/dispatch"
	"github.com/CodeNow/pheidi-sub000/internal/service/email"
	"github.com/CodeNow/pheidi-sub000/internal/service/message"
	"github.com/CodeNow/pheidi-sub000/internal/service/reconcile"
	"github.com/CodeNow/pheidi-sub000/internal/ws"
	"github.com/CodeNow/pheidi-sub000/pkg/config"
	"github.com/CodeNow/pheidi-sub000/pkg/ghapp"
	"github.com/CodeNow/pheidi-sub000/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadWorkerConfig()
	log := logger.New("worker", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis ping failed", "error", err)
		os.Exit(1)
	}

	tokens, err := githubTokens(cfg)
	if err != nil {
		log.Error("github credentials invalid", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	gateway := github.NewClient(cfg.GithubAPIURL, tokens, log)
	renderer := message.New(cfg.UserContentDomain, cfg.WebHost)
	reconciler := reconcile.New(gateway, renderer, cfg.BotLogin, log)
	chatSvc := chat.New(cfg, log)
	defer chatSvc.Close()
	emailSvc := email.New(cfg, log)
	hub := ws.NewHub()
	defer hub.Close()

	dispatcher := dispatch.New(repo, repo, gateway, reconciler, renderer, chatSvc, emailSvc, hub, log, cfg)
	consumer := queue.NewConsumer(redisClient, cfg.QueuePrefix, cfg.QueueWorkers, cfg.QueueMaxAttempts, log)
	dispatcher.Register(consumer)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(ctx)
	}()

	router := httpx.NewRouter(log, hub, map[string]httpx.HealthCheck{
		"database": pool.Ping,
		"queue":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("worker ops server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		<-consumerDone
		log.Info("worker stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// githubTokens picks the credential mode: a GitHub App key when configured,
// otherwise a personal access token.
func githubTokens(cfg config.WorkerConfig) (github.TokenSource, error) {
	if cfg.GithubAppID != "" && cfg.GithubAppKeyPEM != "" {
		return ghapp.New(cfg.GithubAppID, cfg.GithubAppKeyPEM)
	}
	if cfg.GithubToken == "" {
		return nil, errors.New("no github credentials configured")
	}
	return github.StaticToken(cfg.GithubToken), nil
}
