package pipeline

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unichat/venue-ingest/internal/domain"
	"github.com/unichat/venue-ingest/internal/pkg/logger"
)

const (
	progressKeyPrefix = "ingest:run:"
	progressTTL       = 24 * time.Hour
)

// RunProgress mirrors run state into Redis so the frontend can poll a
// long ingestion without waiting for the final report. Everything here
// is best-effort: a Redis outage never fails a run. A nil *RunProgress
// is a valid no-op tracker.
type RunProgress struct {
	rdb *redis.Client
}

// NewRunProgress wraps a Redis client. A nil client yields a no-op
// tracker.
func NewRunProgress(rdb *redis.Client) *RunProgress {
	if rdb == nil {
		return nil
	}
	return &RunProgress{rdb: rdb}
}

func (p *RunProgress) key(runID string) string {
	return progressKeyPrefix + runID
}

// Start marks a run as in flight.
func (p *RunProgress) Start(ctx context.Context, runID string) {
	if p == nil {
		return
	}

	key := p.key(runID)
	pipe := p.rdb.Pipeline()
	pipe.HSet(ctx, key,
		"state", "running",
		"processed", 0,
		"inserted", 0,
		"started_at", time.Now().UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, progressTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("run progress start failed", "run_id", runID, "error", err.Error())
	}
}

// Update publishes the latest row counters.
func (p *RunProgress) Update(ctx context.Context, runID string, processed, inserted int) {
	if p == nil {
		return
	}

	err := p.rdb.HSet(ctx, p.key(runID),
		"processed", processed,
		"inserted", inserted,
	).Err()
	if err != nil {
		logger.Warn("run progress update failed", "run_id", runID, "error", err.Error())
	}
}

// Finish records the final counters and terminal state.
func (p *RunProgress) Finish(ctx context.Context, runID string, report *domain.Report) {
	if p == nil {
		return
	}

	err := p.rdb.HSet(ctx, p.key(runID),
		"state", report.Result,
		"processed", report.Processed,
		"inserted", report.Inserted,
		"db_failed", report.DBFailedCount,
		"finished_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		logger.Warn("run progress finish failed", "run_id", runID, "error", err.Error())
	}
}
