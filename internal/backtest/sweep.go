package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// SweepResult is the outcome of one parameter set
type SweepResult struct {
	Index      int                          `json:"index"`
	Params     Params                       `json:"params"`
	Metrics    contracts.PerformanceMetrics `json:"metrics"`
	Evaluation contracts.StrategyEvaluation `json:"evaluation"`
}

// Sweep simulates every parameter set over the same input.
// Runs are independent and fan out on at most limit goroutines (0 = GOMAXPROCS);
// results keep the order of grid.
func Sweep(ctx context.Context, prices []contracts.PricePoint, signals []contracts.Signal, grid []Params, opts MetricsOptions, limit int) ([]SweepResult, error) {
	if len(signals) != len(prices) {
		return nil, fmt.Errorf("sweep: %d prices, %d signals: %w", len(prices), len(signals), contracts.ErrLengthMismatch)
	}
	for i, p := range grid {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sweep grid[%d]: %w", i, err)
		}
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]SweepResult, len(grid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range grid {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			// 각 실행은 자체 상태만 사용 (공유 없음)
			curve, err := Simulate(prices, signals, p)
			if err != nil {
				return fmt.Errorf("sweep grid[%d]: %w", i, err)
			}

			m := Compute(curve, p.InitialCapital, opts)
			results[i] = SweepResult{
				Index:      i,
				Params:     p,
				Metrics:    m,
				Evaluation: m.Evaluate(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RankBySharpe returns a copy of results ordered by Sharpe ratio, best first
func RankBySharpe(results []SweepResult) []SweepResult {
	ranked := append([]SweepResult(nil), results...)
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Metrics.SharpeRatio > ranked[b].Metrics.SharpeRatio
	})
	return ranked
}
