package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qrtrack/internal/accounts"
	"qrtrack/internal/config"
	"qrtrack/internal/httpapi"
	"qrtrack/internal/notify"
	"qrtrack/internal/queue"
	"qrtrack/internal/store"
	"qrtrack/internal/store/memory"
	"qrtrack/internal/store/postgres"
	"qrtrack/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(ctx, "qrtrack", logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	var st store.Store
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		st = memory.NewStore(memory.Options{})
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		st = postgres.NewStore(pool)
	}

	notifyCfg := notify.Config{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		VAPIDSubject:    cfg.VAPIDSubject,
		CallMeBotKey:    cfg.CallMeBotKey,
		CallMeBotURL:    cfg.CallMeBotURL,
		Timeout:         cfg.DispatchTimeout(),
	}
	pushSender, whatsappSender := notify.SendersFromConfig(notifyCfg, logger)
	dispatcher := notify.NewDispatcher(pushSender, whatsappSender, notify.Options{Timeout: cfg.DispatchTimeout(), Logger: logger})
	logger.Info("notification channels", "push", dispatcher.PushEnabled(), "whatsapp", dispatcher.WhatsappEnabled(), "mode", cfg.DispatchMode)

	var runner notify.Runner = notify.NewInlineRunner(dispatcher)
	var worker *notify.Worker
	if cfg.DispatchMode == config.DispatchAsync {
		worker = notify.NewWorker(dispatcher, notify.WorkerConfig{
			Workers:   cfg.DispatchWorkers,
			QueueSize: cfg.DispatchQueueSize,
			Logger:    logger,
		})
		worker.Start(ctx)
		runner = worker
	}

	options := httpapi.Options{
		PollInterval:   cfg.PollInterval(),
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		Logger:         logger,
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, idempotency keys fail open", "addr", cfg.RedisAddr, "error", err)
		}
		options.Idempotency = httpapi.Idempotency(httpapi.NewRedisIdempotencyStore(redisClient), cfg.IdempotencyTTL(), logger)
	}

	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:       cfg.RateLimitPerMinute,
		IPBurst:           cfg.RateLimitBurst,
		BusinessPerMinute: cfg.TenantRateLimitPerMinute,
		BusinessBurst:     cfg.TenantRateLimitBurst,
	})
	options.RateLimit = limiter.Middleware

	tickets := queue.NewService(st, runner, logger)
	accts := accounts.NewService(st, accounts.Options{Logger: logger})
	handler := httpapi.NewHandler(tickets, accts, options)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(handler.Routes(), "qrtrack"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.DispatchTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("qrtrack listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if worker != nil {
		worker.Close()
		worker.Wait()
	}
	logger.Info("qrtrack stopped")
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
