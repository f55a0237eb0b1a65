package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unichat/venue-ingest/internal/api"
	"github.com/unichat/venue-ingest/internal/config"
	"github.com/unichat/venue-ingest/internal/media"
	"github.com/unichat/venue-ingest/internal/pipeline"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
	"github.com/unichat/venue-ingest/internal/points"
	"github.com/unichat/venue-ingest/internal/repository/postgres"
	s3store "github.com/unichat/venue-ingest/internal/storage/s3"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies the target port is not already in use so
// a stale process fails the boot loudly instead of shadowing us.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	if os.Getenv("DATABASE_URL") != "" {
		logger.Info("DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("pre-flight check failed", "error", err.Error())
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		logger.Error("database ping failed", "error", err.Error())
		os.Exit(1)
	}
	cancel()
	logger.Info("database connected")

	// Redis is optional: without it, runs still work but cannot be
	// polled mid-flight.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, run progress tracking disabled", "addr", cfg.Redis.Addr, "error", err.Error())
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Info("redis connected", "addr", cfg.Redis.Addr)
		}
	}

	// S3
	s3Client, err := s3store.NewClient(ctx, cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize s3 client", "error", err.Error())
		os.Exit(1)
	}
	store := s3store.NewWithClient(s3Client, cfg.Storage.Bucket)
	logger.Info("s3 store initialized", "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)

	// Photo transports: browser-like first, plain fallback second.
	transports := []media.Transport{
		media.NewRichTransport(cfg.Download.Timeout(), cfg.Download.ConnectTimeout(), cfg.Download.MaxRedirects),
		media.NewBasicTransport(cfg.Download.FallbackTimeout()),
	}
	acquirer := media.NewAcquirer(transports, cfg.Ingest.ScratchDirs)

	svc := pipeline.NewService(pipeline.Params{
		Repo:     postgres.NewVenueRepo(db),
		Media:    acquirer,
		Store:    store,
		Picker:   points.NewPicker(nil),
		Progress: pipeline.NewRunProgress(rdb),
		Diagnose: postgres.Diagnostic,
		CSVPath:  cfg.Ingest.CSVPath,
		RowLimit: cfg.Ingest.RowLimit,
	})

	health := api.NewHealthChecker(db, rdb, s3Client, cfg.Storage.Bucket, cfg.Ingest.ScratchDirs)
	server := api.NewServer(svc, health, rdb)

	addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server stopped", "error", err.Error())
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("server stopped cleanly")
}
