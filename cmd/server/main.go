package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/diewo77/cna-billing/auth"
	"github.com/diewo77/cna-billing/internal/config"
	"github.com/diewo77/cna-billing/internal/db"
	"github.com/diewo77/cna-billing/internal/handlers"
	"github.com/diewo77/cna-billing/internal/lib/logger"
	"github.com/diewo77/cna-billing/internal/lib/sl"
	"github.com/diewo77/cna-billing/internal/security"
	"github.com/diewo77/cna-billing/internal/services"
	"github.com/diewo77/cna-billing/internal/session"
	"github.com/diewo77/cna-billing/internal/storage"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Create the initial admin from ADMIN_EMAIL/ADMIN_PASSWORD and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", sl.Err(err))
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env, cfg.App.Debug)

	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	if err := db.Migrate(conn, cfg, log); err != nil {
		log.Error("migration failed", sl.Err(err))
		os.Exit(1)
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed")
		return
	}

	hasher := auth.NewHasher(cfg.Security.ArgonMemory, cfg.Security.ArgonTime, cfg.Security.ArgonThreads)
	if _, err := db.SeedAdmin(conn, cfg.App.AdminEmail, cfg.App.AdminPassword, hasher.Hash, log); err != nil {
		log.Error("seeding failed", sl.Err(err))
		os.Exit(1)
	}
	if *seedOnlyFlag {
		log.Info("seeding completed")
		return
	}

	if err := run(cfg, conn, log); err != nil {
		log.Error("server stopped with error", sl.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, conn *gorm.DB, log *slog.Logger) error {
	ctx := context.Background()
	checks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}

	memory := session.NewMemoryStore()
	var store session.Store = memory
	if cfg.Session.Driver == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		store = session.NewRedisStore(rdb, "cna:session:")
		memory = nil
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		log.Info("sessions stored in redis", slog.String("addr", cfg.Redis.Addr))
	}

	audit, err := security.OpenAuditLog(cfg.Security.AuditLogPath)
	if err != nil {
		log.Warn("security log disabled", sl.Err(err))
	} else {
		defer audit.Close()
	}

	var objects storage.Storage
	if cfg.Storage.Enabled() {
		s3, err := storage.NewS3(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		objects = s3
		log.Info("object storage enabled", slog.String("bucket", cfg.Storage.Bucket))
	}

	throttle := security.NewThrottle(cfg.Security.ThrottlePerMinute, nil)
	app := NewApp(Deps{
		Config:   cfg,
		DB:       conn,
		Sessions: store,
		Audit:    audit,
		Storage:  objects,
		Throttle: throttle,
		Checks:   checks,
		Log:      log,
	})

	sched := services.NewScheduler(cfg.App.Location(), time.Minute, log)
	overdue := app.OverdueJob()
	if err := sched.Add("mark_overdue", cfg.Jobs.OverdueSchedule, func(ctx context.Context) error {
		_, err := overdue.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("prune_throttle", "@every 10m", func(context.Context) error {
		if n := throttle.Prune(30 * time.Minute); n > 0 {
			log.Debug("pruned idle throttle buckets", slog.Int("count", n))
		}
		return nil
	}); err != nil {
		return err
	}
	if memory != nil {
		if err := sched.Add("prune_sessions", "@every 10m", func(context.Context) error {
			if n := memory.Prune(time.Now()); n > 0 {
				log.Debug("pruned expired sessions", slog.Int("count", n))
			}
			return nil
		}); err != nil {
			return err
		}
	}
	sched.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("port", cfg.Server.Port), slog.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
