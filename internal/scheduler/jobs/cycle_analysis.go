package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/swing"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// CycleRunner is the subset of swing.Analyzer the job needs
type CycleRunner interface {
	Run(ctx context.Context, opts swing.RunOptions) (*swing.Report, error)
}

// CycleAnalysisJob refreshes the stored cycle report after collection
type CycleAnalysisJob struct {
	analyzer   CycleRunner
	symbol     string
	from       time.Time
	thresholds []float64
	schedule   string
	logger     *logger.Logger
}

// NewCycleAnalysisJob creates a job that analyzes symbol once per threshold
func NewCycleAnalysisJob(a CycleRunner, symbol string, from time.Time, thresholds []float64, schedule string, log *logger.Logger) *CycleAnalysisJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &CycleAnalysisJob{
		analyzer:   a,
		symbol:     symbol,
		from:       from,
		thresholds: thresholds,
		schedule:   schedule,
		logger:     log.WithComponent("cycle_analysis_job"),
	}
}

// Name returns the job name
func (j *CycleAnalysisJob) Name() string {
	return "cycle_analysis"
}

// Schedule returns the cron schedule
func (j *CycleAnalysisJob) Schedule() string {
	return j.schedule
}

// Run analyzes every configured threshold and stops at the first failure
func (j *CycleAnalysisJob) Run(ctx context.Context) error {
	if len(j.thresholds) == 0 {
		return fmt.Errorf("cycle analysis %s: no thresholds configured", j.symbol)
	}

	for _, th := range j.thresholds {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := j.analyzer.Run(ctx, swing.RunOptions{
			Symbol:    j.symbol,
			From:      j.from,
			Threshold: th,
		})
		if err != nil {
			return fmt.Errorf("cycle analysis %s (threshold=%v): %w", j.symbol, th, err)
		}

		fields := map[string]interface{}{
			"symbol":    j.symbol,
			"threshold": th,
			"cycles":    report.Statistics.Total,
		}
		if report.Status != nil {
			fields["status"] = report.Status.Code
		}
		j.logger.WithFields(fields).Info("Scheduled cycle analysis completed")
	}

	return nil
}
