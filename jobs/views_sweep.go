package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// OrphanSweeper removes saved views whose owning user row is gone.
type OrphanSweeper interface {
	DeleteOrphaned(ctx context.Context) (int64, error)
}

// ViewsSweepJob reclaims saved views left behind by deleted users.
type ViewsSweepJob struct {
	sweeper OrphanSweeper
	logger  *slog.Logger
}

// NewViewsSweepJob constructs a ViewsSweepJob.
func NewViewsSweepJob(sweeper OrphanSweeper, logger *slog.Logger) *ViewsSweepJob {
	return &ViewsSweepJob{sweeper: sweeper, logger: logger}
}

// Handle processes TaskViewsSweep tasks.
func (j *ViewsSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	removed, err := j.sweeper.DeleteOrphaned(ctx)
	if err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("views sweep complete", slog.Int64("removed", removed))
	}
	return nil
}
