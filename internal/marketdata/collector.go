package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// Fetcher is the upstream source of daily bars
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error)
}

// Collector pulls bars from the source and stores them
// ⭐ SSOT: 시세 수집 오케스트레이션은 여기서만
type Collector struct {
	fetcher Fetcher
	repo    contracts.PriceRepository
	start   time.Time // earliest date when the store is empty
	logger  *logger.Logger
}

// NewCollector creates a new Collector
func NewCollector(fetcher Fetcher, repo contracts.PriceRepository, start time.Time, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		repo:    repo,
		start:   start,
		logger:  log.WithComponent("collector"),
	}
}

// CollectResult is the outcome of one collection run
type CollectResult struct {
	Symbol  string        `json:"symbol"`
	From    time.Time     `json:"from"`
	To      time.Time     `json:"to"`
	Fetched int           `json:"fetched"`
	Saved   int           `json:"saved"`
	Quality QualityReport `json:"quality"`
	Elapsed time.Duration `json:"elapsed"`
}

// Collect fetches [from, to] and upserts it. A zero from resumes after the latest stored bar
// (or from the configured start when the store is empty); a zero to means today.
func (c *Collector) Collect(ctx context.Context, symbol string, from, to time.Time) (*CollectResult, error) {
	started := time.Now()

	if to.IsZero() {
		to = contracts.DateOnly(time.Now().UTC())
	}
	if from.IsZero() {
		resume, err := c.resumeFrom(ctx, symbol)
		if err != nil {
			return nil, err
		}
		from = resume
	}

	result := &CollectResult{Symbol: symbol, From: from, To: to}
	if from.After(to) {
		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
		}).Info("Prices already up to date")
		return result, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}).Info("Starting price collection")

	prices, err := c.fetcher.FetchDaily(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	result.Fetched = len(prices)

	quality, err := ValidateSeries(prices)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", symbol, err)
	}
	result.Quality = quality
	if !quality.Passed() {
		c.logger.WithFields(map[string]interface{}{
			"symbol":       symbol,
			"non_positive": quality.NonPositive,
		}).Warn("Fetched series has non-positive closes")
	}

	saved, err := c.repo.SaveBatch(ctx, symbol, prices)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", symbol, err)
	}
	result.Saved = saved
	result.Elapsed = time.Since(started)

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"fetched": result.Fetched,
		"saved":   result.Saved,
		"gaps":    quality.Gaps,
		"elapsed": result.Elapsed.String(),
	}).Info("Price collection completed")

	return result, nil
}

func (c *Collector) resumeFrom(ctx context.Context, symbol string) (time.Time, error) {
	latest, err := c.repo.GetLatest(ctx, symbol)
	if errors.Is(err, contracts.ErrNotFound) {
		return c.start, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest %s: %w", symbol, err)
	}
	return contracts.DateOnly(latest.Date).AddDate(0, 0, 1), nil
}
