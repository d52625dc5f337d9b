package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duotoeic/internal/auth"
	"duotoeic/internal/config"
	"duotoeic/internal/db"
	"duotoeic/internal/feedback"
	api "duotoeic/internal/http"
	"duotoeic/internal/repo"
	"duotoeic/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer closer.Close()

	coach, err := feedback.New(feedback.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})
	if err != nil {
		log.Fatalf("feedback client: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		log.Println("GEMINI_API_KEY not set, coaching will use fallbacks")
	}

	authManager := auth.NewManager(cfg.JWTSecret)
	svc := service.New(cfg.Users, cfg.Rules.Ledger(), store, coach, authManager)
	svc.TokenTTL = cfg.TokenTTL
	if err := svc.Start(ctx, cfg.SeedDemo); err != nil {
		log.Fatalf("failed to load plan: %v", err)
	}

	handler := &api.API{Service: svc, Auth: authManager, Origins: cfg.CORSOrigins}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s (%s store)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, cfg config.Config) (repo.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(ctx, pool, db.Migrations, db.PostgresMigrations); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo.NewPostgres(pool), closerFunc(func() error { pool.Close(); return nil }), nil
	case config.StoreSQLite:
		sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunSQLiteMigrations(ctx, sqlDB, db.Migrations, db.SQLiteMigrations); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return repo.NewSQLite(sqlDB), sqlDB, nil
	default:
		return repo.NewMemory(), closerFunc(func() error { return nil }), nil
	}
}
