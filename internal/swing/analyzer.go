package swing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/logger"
	"github.com/newyorkwoo/buyStock/pkg/redis"
)

// DefaultMajorLimit 리포트에 포함할 주요 사이클 최대 개수
const DefaultMajorLimit = 10

// Report is the full cycle analysis for one symbol
type Report struct {
	Symbol         string                 `json:"symbol"`
	Threshold      float64                `json:"threshold"`
	From           time.Time              `json:"from"`
	To             time.Time              `json:"to"`
	Bars           int                    `json:"bars"`
	Cycles         []contracts.SwingCycle `json:"cycles"`
	Statistics     Statistics             `json:"statistics"`
	MajorCycles    []contracts.SwingCycle `json:"major_cycles"`
	Status         *MarketStatus          `json:"status,omitempty"`
	Recommendation *Recommendation        `json:"recommendation,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// Analyze runs detection, aggregation, status and recommendation on materialized prices
func Analyze(symbol string, prices []contracts.PricePoint, threshold float64, majorLimit int) (*Report, error) {
	cycles, err := Detect(prices, threshold)
	if err != nil {
		return nil, err
	}

	st := Aggregate(cycles)
	report := &Report{
		Symbol:      symbol,
		Threshold:   threshold,
		Bars:        len(prices),
		Cycles:      cycles,
		Statistics:  st,
		MajorCycles: MajorCycles(cycles, majorLimit),
		GeneratedAt: time.Now().UTC(),
	}

	if len(prices) > 0 {
		report.From = prices[0].Date
		report.To = prices[len(prices)-1].Date
	}

	if status, ok := CurrentStatus(prices); ok {
		rec := Recommend(cycles, st, status)
		report.Status = &status
		report.Recommendation = &rec
	}

	return report, nil
}

// RunOptions selects the data window for Analyzer.Run
type RunOptions struct {
	Symbol     string
	From       time.Time
	To         time.Time // zero = latest stored bar
	Threshold  float64
	MajorLimit int
}

// Analyzer loads prices from storage and produces cached reports
// ⭐ SSOT: 사이클 분석 오케스트레이션은 여기서만
type Analyzer struct {
	prices contracts.PriceRepository
	cycles contracts.CycleRepository // optional
	cache  *redis.Cache              // optional
	logger *logger.Logger
}

// NewAnalyzer creates a new analyzer. cycles and cache may be nil.
func NewAnalyzer(prices contracts.PriceRepository, cycles contracts.CycleRepository, cache *redis.Cache, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Analyzer{
		prices: prices,
		cycles: cycles,
		cache:  cache,
		logger: log.WithComponent("cycle_analyzer"),
	}
}

// Run builds the report for opts, serving it from cache when the latest bar is unchanged
func (a *Analyzer) Run(ctx context.Context, opts RunOptions) (*Report, error) {
	if opts.Threshold <= 0 || opts.Threshold >= 1 {
		return nil, fmt.Errorf("analyze %s (threshold=%v): %w", opts.Symbol, opts.Threshold, contracts.ErrInvalidThreshold)
	}
	if opts.MajorLimit == 0 {
		opts.MajorLimit = DefaultMajorLimit
	}

	to := opts.To
	if to.IsZero() {
		latest, err := a.prices.GetLatest(ctx, opts.Symbol)
		if errors.Is(err, contracts.ErrNotFound) {
			return Analyze(opts.Symbol, nil, opts.Threshold, opts.MajorLimit)
		}
		if err != nil {
			return nil, fmt.Errorf("get latest price: %w", err)
		}
		to = latest.Date
	}

	key := redis.CycleReportKey(opts.Symbol, opts.Threshold,
		fmt.Sprintf("%s~%s", opts.From.Format("2006-01-02"), to.Format("2006-01-02")))

	if a.cache != nil {
		var cached Report
		found, err := a.cache.Get(ctx, key, &cached)
		if err != nil {
			a.logger.WithError(err).Warn("Cycle report cache read failed")
		} else if found {
			a.logger.WithField("symbol", opts.Symbol).Debug("Cycle report served from cache")
			return &cached, nil
		}
	}

	prices, err := a.prices.GetRange(ctx, opts.Symbol, opts.From, to)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}

	report, err := Analyze(opts.Symbol, prices, opts.Threshold, opts.MajorLimit)
	if err != nil {
		return nil, err
	}

	if a.cycles != nil {
		if err := a.cycles.ReplaceAll(ctx, opts.Symbol, opts.Threshold, report.Cycles); err != nil {
			return nil, fmt.Errorf("persist cycles: %w", err)
		}
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, report, redis.TTLDaily); err != nil {
			a.logger.WithError(err).Warn("Cycle report cache write failed")
		}
	}

	fields := map[string]interface{}{
		"symbol":    opts.Symbol,
		"threshold": opts.Threshold,
		"bars":      report.Bars,
		"cycles":    report.Statistics.Total,
		"ongoing":   report.Statistics.Ongoing,
	}
	if report.Status != nil {
		fields["status"] = report.Status.Code
		fields["drawdown_from_recent"] = fmt.Sprintf("%.2f%%", report.Status.DrawdownFromRecent*100)
	}
	a.logger.WithFields(fields).Info("Cycle analysis completed")

	return report, nil
}
