// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes records older than a cutoff and reports how many went.
// The ledger and audit stores satisfy it.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob creates a job that deletes records older than retention from
// store every interval.
func RetentionJob(name string, store Purger, retention, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().UTC().Add(-retention)
			deleted, err := store.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("purged expired records",
					zap.String("job", name),
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
