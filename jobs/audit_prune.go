package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAuditRetention = 90 * 24 * time.Hour

// AuditPruneJob deletes audit log entries older than the retention horizon.
type AuditPruneJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditPruneJob constructs an AuditPruneJob.
func NewAuditPruneJob(pool *pgxpool.Pool, logger *slog.Logger) *AuditPruneJob {
	return &AuditPruneJob{pool: pool, logger: logger}
}

// Handle processes TaskAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = defaultAuditRetention
	}
	horizon := time.Now().UTC().Add(-retention)
	tag, err := j.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, horizon)
	if err != nil {
		return err
	}
	if j.logger != nil {
		j.logger.Info("audit prune complete",
			slog.Time("horizon", horizon),
			slog.Int64("deleted", tag.RowsAffected()))
	}
	return nil
}
