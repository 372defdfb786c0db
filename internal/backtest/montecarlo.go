package backtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/newyorkwoo/buyStock/internal/stats"
)

// ErrTooFewReturns is returned when the curve has fewer daily returns than MinSamples
var ErrTooFewReturns = errors.New("not enough daily returns to resample")

// MonteCarloConfig controls the bootstrap of strategy daily returns
// ⭐ SSOT: 재현성을 위해 모든 설정을 결과에 기록
type MonteCarloConfig struct {
	Paths      int   `json:"paths" yaml:"paths"`             // 시뮬레이션 경로 수
	Horizon    int   `json:"horizon" yaml:"horizon"`         // 경로당 거래일 수 (0 = 원본 길이)
	Seed       int64 `json:"seed" yaml:"seed"`               // 0 = 시간 기반
	MinSamples int   `json:"min_samples" yaml:"min_samples"` // fail-closed 하한
}

// DefaultMonteCarloConfig returns 1000 one-year paths
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		Paths:      1000,
		Horizon:    252,
		MinSamples: 30,
	}
}

// MonteCarloResult is the distribution of terminal return and max drawdown across paths.
// Percentile keys are 5, 25, 50, 75, 95.
type MonteCarloResult struct {
	Config           MonteCarloConfig `json:"config"`
	InputSamples     int              `json:"input_samples"`
	MeanReturn       float64          `json:"mean_return"`
	StdDev           float64          `json:"std_dev"`
	ProbabilityLoss  float64          `json:"probability_of_loss"`
	ReturnVaR95      stats.VaRResult  `json:"return_var_95"`
	ReturnPercentile map[int]float64  `json:"return_percentiles"`
	DrawdownPct      map[int]float64  `json:"max_drawdown_percentiles"`
	Elapsed          time.Duration    `json:"elapsed"`
}

var mcPercentiles = []int{5, 25, 50, 75, 95}

// MonteCarlo resamples daily returns with replacement into cfg.Paths synthetic curves.
// Zero daily returns (bars with no portfolio change) are kept as samples.
func MonteCarlo(ctx context.Context, returns []float64, cfg MonteCarloConfig) (*MonteCarloResult, error) {
	if cfg.Paths <= 0 {
		return nil, fmt.Errorf("monte carlo paths %d: must be > 0", cfg.Paths)
	}
	if len(returns) == 0 || len(returns) < cfg.MinSamples {
		return nil, fmt.Errorf("%d returns (min %d): %w", len(returns), cfg.MinSamples, ErrTooFewReturns)
	}
	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = len(returns)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	started := time.Now()
	terminal := make([]float64, cfg.Paths)
	drawdowns := make([]float64, cfg.Paths)
	path := make([]float64, horizon+1)

	for i := 0; i < cfg.Paths; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		path[0] = 1.0
		for d := 1; d <= horizon; d++ {
			path[d] = path[d-1] * (1 + returns[rng.Intn(len(returns))])
		}
		terminal[i] = path[horizon] - 1
		drawdowns[i], _ = MaxDrawdown(path)
	}

	losses := 0
	for _, r := range terminal {
		if r < 0 {
			losses++
		}
	}

	sortedReturns := stats.Sorted(terminal)
	sortedDrawdowns := stats.Sorted(drawdowns)
	result := &MonteCarloResult{
		Config:           cfg,
		InputSamples:     len(returns),
		MeanReturn:       stats.Mean(terminal),
		StdDev:           stats.SampleStd(terminal),
		ProbabilityLoss:  float64(losses) / float64(cfg.Paths),
		ReturnVaR95:      stats.HistoricalVaR(terminal, 0.95),
		ReturnPercentile: make(map[int]float64, len(mcPercentiles)),
		DrawdownPct:      make(map[int]float64, len(mcPercentiles)),
	}
	for _, p := range mcPercentiles {
		result.ReturnPercentile[p] = stats.Percentile(sortedReturns, float64(p))
		result.DrawdownPct[p] = stats.Percentile(sortedDrawdowns, float64(p))
	}
	result.Config.Horizon = horizon
	result.Config.Seed = seed
	result.Elapsed = time.Since(started)

	return result, nil
}
