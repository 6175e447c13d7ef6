package cron

import (
	"context"
	"fmt"

	"github.com/bottlespin/bottlespin-backend/pkg/logger"
)

// leaderboardRecomputer is the slice of the stats service the job needs.
type leaderboardRecomputer interface {
	RecomputeLeaderboard(ctx context.Context) (int, error)
}

// LeaderboardJobParams configure the leaderboard recompute job.
type LeaderboardJobParams struct {
	Logger *logger.Logger
	Stats  leaderboardRecomputer
}

// NewLeaderboardJob rebuilds leaderboard ranks from the ledger on each run.
func NewLeaderboardJob(params LeaderboardJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	return &leaderboardJob{
		logg:  params.Logger,
		stats: params.Stats,
	}, nil
}

type leaderboardJob struct {
	logg  *logger.Logger
	stats leaderboardRecomputer
}

func (j *leaderboardJob) Name() string { return "leaderboard-recompute" }

func (j *leaderboardJob) Run(ctx context.Context) error {
	ranked, err := j.stats.RecomputeLeaderboard(ctx)
	logCtx := j.logg.WithField(ctx, "ranked_users", ranked)
	if err != nil {
		// Partial recomputes still rank the users that succeeded.
		j.logg.Error(logCtx, "leaderboard recompute finished with failures", err)
		return fmt.Errorf("leaderboard recompute: %w", err)
	}
	j.logg.Info(logCtx, "leaderboard recompute complete")
	return nil
}
