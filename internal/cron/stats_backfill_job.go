package cron

import (
	"context"
	"fmt"

	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

// statsBackfiller is the slice of the stats service the job needs.
type statsBackfiller interface {
	BackfillStats(ctx context.Context) (int, error)
}

// StatsBackfillJobParams configure the stats backfill job.
type StatsBackfillJobParams struct {
	Logger *logger.Logger
	Stats  statsBackfiller
}

// NewStatsBackfillJob rebuilds user_stats rows for users that have ledger
// activity but no cached snapshot.
func NewStatsBackfillJob(params StatsBackfillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	return &statsBackfillJob{
		logg:  params.Logger,
		stats: params.Stats,
	}, nil
}

type statsBackfillJob struct {
	logg  *logger.Logger
	stats statsBackfiller
}

func (j *statsBackfillJob) Name() string { return "stats-backfill" }

func (j *statsBackfillJob) Run(ctx context.Context) error {
	rebuilt, err := j.stats.BackfillStats(ctx)
	logCtx := j.logg.WithField(ctx, "rebuilt_rows", rebuilt)
	if err != nil {
		j.logg.Error(logCtx, "stats backfill finished with failures", err)
		return fmt.Errorf("stats backfill: %w", err)
	}
	j.logg.Info(logCtx, "stats backfill complete")
	return nil
}
