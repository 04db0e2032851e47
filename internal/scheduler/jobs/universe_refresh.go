package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/pulse/internal/tickers"
	"github.com/wonny/pulse/pkg/logger"
)

// UniverseRefreshJob refreshes the venue's supported-symbol list
type UniverseRefreshJob struct {
	universe *tickers.Universe
	interval time.Duration
	logger   *logger.Logger
}

// NewUniverseRefreshJob creates a new universe refresh job
func NewUniverseRefreshJob(universe *tickers.Universe, interval time.Duration, log *logger.Logger) *UniverseRefreshJob {
	return &UniverseRefreshJob{
		universe: universe,
		interval: interval,
		logger:   log,
	}
}

// Name returns the job name
func (j *UniverseRefreshJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule derived from the configured interval
func (j *UniverseRefreshJob) Schedule() string {
	minutes := int(j.interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes >= 60 {
		return "0 0 * * * *" // hourly
	}
	return fmt.Sprintf("0 */%d * * * *", minutes)
}

// Run refreshes the universe; a failure keeps the stale list serving
func (j *UniverseRefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return j.universe.Refresh(ctx)
}
