package jobs

import (
	"context"

	"github.com/wonny/pulse/internal/trading"
	"github.com/wonny/pulse/pkg/logger"
)

// ExpirySweepJob expires overdue pending trades and purges records past
// retention from the active set
type ExpirySweepJob struct {
	store  *trading.Store
	logger *logger.Logger
}

// NewExpirySweepJob creates a new expiry sweep job
func NewExpirySweepJob(store *trading.Store, log *logger.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{
		store:  store,
		logger: log,
	}
}

// Name returns the job name
func (j *ExpirySweepJob) Name() string {
	return "expiry_sweep"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *ExpirySweepJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the sweep
func (j *ExpirySweepJob) Run(ctx context.Context) error {
	j.store.Sweep(ctx)
	return nil
}
