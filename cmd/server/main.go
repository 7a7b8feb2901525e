package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/config"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/server"
	"github.com/ayush/task-manager-api/internal/store"
	"github.com/ayush/task-manager-api/internal/store/memory"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

// backend is what every store driver provides.
type backend interface {
	users.Store
	users.TaskPurger
	tasks.Store
	server.Pinger
	Migrate(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// ── Store ────────────────────────────────────────────────
	var db backend
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer pool.Close()
		db = store.NewPostgresStore(pool)

	case config.DriverMemory:
		log.Println("using in-memory store; data is lost on restart")
		db = memory.New()

	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("mongo connect: %v", err)
		}
		defer client.Disconnect(ctx)
		db = store.NewMongoStore(client.Database(cfg.MongoDB))
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		log.Fatalf("%s migrate: %v", cfg.StoreDriver, err)
	}
	cancel()

	// ── Redis (optional) ─────────────────────────────────────
	var limiter middleware.AttemptLimiter
	if cfg.RateLimitEnabled() {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer rdb.Close()
		limiter = auth.NewLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow)
		log.Printf("auth rate limit: %d per %s", cfg.AuthRateLimit, cfg.AuthRateWindow)
	}

	// ── Services ─────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	quota := tasks.DefaultQuota()
	quota.Total = cfg.TaskTotalLimit
	quota.Daily = cfg.TaskDailyLimit
	quota.Location = cfg.DayLocation

	userSvc := users.NewService(db, db, hasher, tokens)
	taskSvc := tasks.NewService(db, db, quota)

	// ── Router ───────────────────────────────────────────────
	r := server.NewRouter(server.Deps{
		Users:       users.NewHandler(userSvc),
		Tasks:       tasks.NewHandler(taskSvc),
		Tokens:      tokens,
		Limiter:     limiter,
		Store:       db,
		CORSOrigins: cfg.CORSOrigins,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Task manager API listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
