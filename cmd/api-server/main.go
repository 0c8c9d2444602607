package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pianostudio/lesson-booking/internal/api"
	"github.com/pianostudio/lesson-booking/internal/booking"
	"github.com/pianostudio/lesson-booking/internal/config"
	"github.com/pianostudio/lesson-booking/internal/db"
	"github.com/pianostudio/lesson-booking/internal/notify"
	redisclient "github.com/pianostudio/lesson-booking/internal/redis"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s window=%02d:00-%02d:00", cfg.Env, cfg.HTTPPort, cfg.OpenHour, cfg.CloseHour)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	schemaCtx, cancelSchema := context.WithTimeout(rootCtx, 10*time.Second)
	err = db.EnsureSchema(schemaCtx, pgPool)
	cancelSchema()
	if err != nil {
		log.Fatalf("schema bootstrap error: %v", err)
	}

	// Redis only backs the slot-lock fast path. Without it the unique
	// constraint still prevents double-booking, so its absence is not fatal.
	locker := redisclient.NewNoopLocker()
	var routerRedis *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Printf("redis unavailable, slot lock disabled: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					log.Printf("error closing redis: %v", err)
				}
			}()
			locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
			routerRedis = rdb
			log.Println("connected to Redis")
		}
	} else {
		log.Println("REDIS_ADDR not set, slot lock disabled")
	}

	var notifier booking.Notifier = notify.Disabled{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewEmailNotifier(cfg)
		log.Printf("booking notifications enabled recipient=%s", cfg.NotifyRecipient)
	} else {
		log.Println("SMTP_HOST not set, booking notifications disabled")
	}

	repo := booking.NewPgRepository(pgPool)
	svc := booking.NewService(repo, locker, notifier, cfg)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   routerRedis,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	case <-rootCtx.Done():
		log.Println("shutting down api-server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}
