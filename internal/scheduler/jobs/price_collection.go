package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// PriceCollector is the subset of marketdata.Collector the job needs
type PriceCollector interface {
	Collect(ctx context.Context, symbol string, from, to time.Time) (*marketdata.CollectResult, error)
}

// PriceCollectionJob appends new daily bars for one symbol
// ⭐ SSOT: 가격 수집 스케줄은 이 Job에서만
type PriceCollectionJob struct {
	collector PriceCollector
	symbol    string
	schedule  string
	logger    *logger.Logger
}

// NewPriceCollectionJob creates a new price collection job
func NewPriceCollectionJob(col PriceCollector, symbol, schedule string, log *logger.Logger) *PriceCollectionJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &PriceCollectionJob{
		collector: col,
		symbol:    symbol,
		schedule:  schedule,
		logger:    log.WithComponent("price_collection_job"),
	}
}

// Name returns the job name
func (j *PriceCollectionJob) Name() string {
	return "price_collection"
}

// Schedule returns the cron schedule
func (j *PriceCollectionJob) Schedule() string {
	return j.schedule
}

// Run resumes collection after the latest stored bar
func (j *PriceCollectionJob) Run(ctx context.Context) error {
	res, err := j.collector.Collect(ctx, j.symbol, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("collect %s: %w", j.symbol, err)
	}

	j.logger.WithFields(map[string]interface{}{
		"symbol":  j.symbol,
		"fetched": res.Fetched,
		"saved":   res.Saved,
	}).Info("Scheduled price collection completed")

	return nil
}
