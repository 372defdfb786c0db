package jobs

import (
	"context"
	"fmt"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// BacktestRunner is the subset of backtest.Engine the job needs
type BacktestRunner interface {
	Run(ctx context.Context, cfg backtest.RunConfig) (*backtest.Result, error)
}

// BacktestRefreshJob re-runs a strategy over the stored signals and persists the run.
// To is left zero so every run extends to the latest bar.
type BacktestRefreshJob struct {
	engine   BacktestRunner
	cfg      backtest.RunConfig
	schedule string
	logger   *logger.Logger
}

// NewBacktestRefreshJob creates a new backtest refresh job
func NewBacktestRefreshJob(engine BacktestRunner, cfg backtest.RunConfig, schedule string, log *logger.Logger) *BacktestRefreshJob {
	if log == nil {
		log = logger.NewNop()
	}
	cfg.Persist = true
	return &BacktestRefreshJob{
		engine:   engine,
		cfg:      cfg,
		schedule: schedule,
		logger:   log.WithComponent("backtest_refresh_job"),
	}
}

// Name returns the job name
func (j *BacktestRefreshJob) Name() string {
	return "backtest_refresh"
}

// Schedule returns the cron schedule
func (j *BacktestRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the backtest
func (j *BacktestRefreshJob) Run(ctx context.Context) error {
	res, err := j.engine.Run(ctx, j.cfg)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", j.cfg.Symbol, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol":       j.cfg.Symbol,
		"run_id":       res.RunID.String(),
		"total_return": fmt.Sprintf("%.2f%%", res.Metrics.TotalReturn*100),
	}).Info("Scheduled backtest completed")

	return nil
}
