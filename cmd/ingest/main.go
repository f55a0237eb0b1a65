// Command ingest runs one venue ingestion end to end and prints the
// report as JSON, mirroring what POST /api/ingest/venues returns. Exit
// code 1 means a fatal input problem; row-level failures are part of
// the report and exit 0.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unichat/venue-ingest/internal/config"
	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/media"
	"github.com/unichat/venue-ingest/internal/pipeline"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
	"github.com/unichat/venue-ingest/internal/points"
	"github.com/unichat/venue-ingest/internal/repository/postgres"
	s3store "github.com/unichat/venue-ingest/internal/storage/s3"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	csvPath := flag.String("csv", "", "override the source CSV path")
	rowLimit := flag.Int("limit", 0, "override the row ceiling")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	if *csvPath != "" {
		cfg.Ingest.CSVPath = *csvPath
	}
	if *rowLimit > 0 {
		cfg.Ingest.RowLimit = *rowLimit
	}

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		fatal(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		fatal(fmt.Errorf("database ping: %w", err))
	}

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
		}
	}

	store, err := s3store.New(ctx, cfg.Storage)
	if err != nil {
		fatal(fmt.Errorf("initialize s3 store: %w", err))
	}

	transports := []media.Transport{
		media.NewRichTransport(cfg.Download.Timeout(), cfg.Download.ConnectTimeout(), cfg.Download.MaxRedirects),
		media.NewBasicTransport(cfg.Download.FallbackTimeout()),
	}

	svc := pipeline.NewService(pipeline.Params{
		Repo:     postgres.NewVenueRepo(db),
		Media:    media.NewAcquirer(transports, cfg.Ingest.ScratchDirs),
		Store:    store,
		Picker:   points.NewPicker(nil),
		Progress: pipeline.NewRunProgress(rdb),
		Diagnose: postgres.Diagnostic,
		CSVPath:  cfg.Ingest.CSVPath,
		RowLimit: cfg.Ingest.RowLimit,
	})

	report, err := svc.Run(ctx)
	if err != nil {
		fatal(err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fatal(fmt.Errorf("encode report: %w", err))
	}
	fmt.Println(string(out))
}

// fatal prints the same failure envelope the HTTP API returns and
// exits non-zero.
func fatal(err error) {
	out, _ := json.Marshal(domain.FailureResponse{Result: "failure", Message: err.Error()})
	fmt.Fprintln(os.Stderr, string(out))
	os.Exit(1)
}
