package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/stats"
	"github.com/newyorkwoo/buyStock/pkg/logger"
	"github.com/newyorkwoo/buyStock/pkg/redis"
)

// RunConfig holds backtest configuration
type RunConfig struct {
	Symbol     string
	From       time.Time
	To         time.Time
	Params     Params
	Metrics    MetricsOptions
	ConfigHash string // provenance of the strategy file, if any
	Persist    bool
	MonteCarlo *MonteCarloConfig // optional bootstrap of the daily returns
}

// Result holds backtest results
type Result struct {
	RunID      uuid.UUID                    `json:"run_id"`
	Symbol     string                       `json:"symbol"`
	ConfigHash string                       `json:"config_hash,omitempty"`
	Params     Params                       `json:"params"`
	Metrics    contracts.PerformanceMetrics `json:"metrics"`
	Evaluation contracts.StrategyEvaluation `json:"evaluation"`
	VaR95      stats.VaRResult              `json:"var_95"`
	MonteCarlo *MonteCarloResult            `json:"monte_carlo,omitempty"`
	Dropped    int                          `json:"dropped_bars"` // price bars without a signal
	Curve      []contracts.EquityPoint      `json:"curve,omitempty"`
	Duration   time.Duration                `json:"duration"`
}

// ResultCache is satisfied by *redis.Cache
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Engine runs backtesting simulations
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	prices  contracts.PriceRepository
	signals contracts.SignalRepository
	runs    contracts.BacktestRepository // optional
	cache   ResultCache                  // optional
	logger  *logger.Logger
}

// NewEngine creates a new backtest engine. runs may be nil.
func NewEngine(
	prices contracts.PriceRepository,
	signals contracts.SignalRepository,
	runs contracts.BacktestRepository,
	log *logger.Logger,
) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		prices:  prices,
		signals: signals,
		runs:    runs,
		logger:  log.WithComponent("backtest"),
	}
}

// WithCache serves repeated runs of the same strategy file over the same window from cache
func (e *Engine) WithCache(c ResultCache) *Engine {
	e.cache = c
	return e
}

// cacheKey is empty when the run must not be served from cache:
// persisted runs need a fresh RunID and Monte Carlo flags are not part of the config hash.
func cacheKey(cfg RunConfig, prices []contracts.PricePoint) string {
	if cfg.ConfigHash == "" || cfg.Persist || cfg.MonteCarlo != nil || len(prices) == 0 {
		return ""
	}
	return redis.BacktestKey(cfg.Symbol, cfg.ConfigHash,
		prices[0].Date.Format("2006-01-02"), prices[len(prices)-1].Date.Format("2006-01-02"))
}

// Run loads bars and signals for the configured window and simulates them
func (e *Engine) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if e.prices == nil || e.signals == nil {
		return nil, fmt.Errorf("backtest engine has no repositories")
	}
	if cfg.To.IsZero() {
		cfg.To = time.Now().UTC()
	}

	prices, err := e.prices.GetRange(ctx, cfg.Symbol, cfg.From, cfg.To)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	signals, err := e.signals.GetRange(ctx, cfg.Symbol, cfg.From, cfg.To)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	alignedPrices, alignedSignals, dropped := Align(prices, signals)
	if dropped > 0 {
		e.logger.WithFields(map[string]interface{}{
			"symbol":  cfg.Symbol,
			"dropped": dropped,
			"kept":    len(alignedPrices),
		}).Warn("Price bars without a signal were skipped")
	}

	result, err := e.RunSeries(ctx, cfg, alignedPrices, alignedSignals)
	if err != nil {
		return nil, err
	}
	result.Dropped = dropped
	return result, nil
}

// RunSeries simulates already materialized, aligned input
func (e *Engine) RunSeries(ctx context.Context, cfg RunConfig, prices []contracts.PricePoint, signals []contracts.Signal) (*Result, error) {
	key := ""
	if e.cache != nil {
		key = cacheKey(cfg, prices)
	}
	if key != "" {
		var cached Result
		found, err := e.cache.Get(ctx, key, &cached)
		if err != nil {
			e.logger.WithError(err).Warn("Backtest cache read failed")
		} else if found {
			e.logger.WithFields(map[string]interface{}{
				"symbol":      cfg.Symbol,
				"config_hash": cfg.ConfigHash,
				"run_id":      cached.RunID.String(),
			}).Info("Backtest served from cache")
			return &cached, nil
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":          cfg.Symbol,
		"bars":            len(prices),
		"initial_capital": cfg.Params.InitialCapital,
		"commission":      cfg.Params.CommissionRate,
		"slippage":        cfg.Params.SlippageRate,
	}).Info("Starting backtest")

	startTime := time.Now()

	curve, err := Simulate(prices, signals, cfg.Params)
	if err != nil {
		return nil, err
	}

	metrics := Compute(curve, cfg.Params.InitialCapital, cfg.Metrics)
	returns := DailyReturns(PortfolioValues(curve))
	result := &Result{
		RunID:      uuid.New(),
		Symbol:     cfg.Symbol,
		ConfigHash: cfg.ConfigHash,
		Params:     cfg.Params,
		Metrics:    metrics,
		Evaluation: metrics.Evaluate(),
		VaR95:      stats.HistoricalVaR(returns, 0.95),
		Curve:      curve,
	}

	if cfg.MonteCarlo != nil {
		mc, err := MonteCarlo(ctx, returns, *cfg.MonteCarlo)
		if err != nil {
			return nil, fmt.Errorf("monte carlo: %w", err)
		}
		result.MonteCarlo = mc
	}
	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"run_id":       result.RunID.String(),
		"duration":     result.Duration.Seconds(),
		"trading_days": metrics.TradingDays,
		"trades":       metrics.TotalTrades,
		"total_return": fmt.Sprintf("%.2f%%", metrics.TotalReturn*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", metrics.SharpeRatio),
		"max_drawdown": fmt.Sprintf("%.2f%%", metrics.MaxDrawdown*100),
	}).Info("Backtest completed")

	if key != "" {
		if err := e.cache.Set(ctx, key, result, redis.TTLBacktest); err != nil {
			e.logger.WithError(err).Warn("Backtest cache write failed")
		}
	}

	if cfg.Persist && e.runs != nil {
		run := contracts.BacktestRun{
			RunID:      result.RunID,
			Symbol:     cfg.Symbol,
			ConfigHash: cfg.ConfigHash,
			Metrics:    metrics,
			CreatedAt:  time.Now().UTC(),
		}
		if err := e.runs.SaveRun(ctx, run, curve); err != nil {
			return nil, fmt.Errorf("save backtest run: %w", err)
		}
	}

	return result, nil
}
