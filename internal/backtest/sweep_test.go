package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

func sweepInput() ([]contracts.PricePoint, []contracts.Signal) {
	prices := bars(100, 95, 105, 110, 98, 120)
	signals := []contracts.Signal{
		contracts.SignalBuy, contracts.SignalBuy, contracts.SignalSell,
		contracts.SignalHold, contracts.SignalBuy, contracts.SignalStrongSell,
	}
	return prices, signals
}

func TestSweep_MatchesSequentialRuns(t *testing.T) {
	prices, signals := sweepInput()
	grid := []Params{
		{InitialCapital: 100000},
		{InitialCapital: 100000, CommissionRate: 0.001, SlippageRate: 0.0005},
		{InitialCapital: 100000, CommissionRate: 0.01, SlippageRate: 0.01},
		{InitialCapital: 5000, CommissionRate: 0.002},
	}

	results, err := Sweep(context.Background(), prices, signals, grid, DefaultMetricsOptions(), 2)
	require.NoError(t, err)
	require.Len(t, results, len(grid))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, grid[i], r.Params)

		curve, err := Simulate(prices, signals, grid[i])
		require.NoError(t, err)
		assert.Equal(t, Compute(curve, grid[i].InitialCapital, DefaultMetricsOptions()), r.Metrics)
	}

	// higher costs can only hurt
	assert.Greater(t, results[0].Metrics.TotalReturn, results[2].Metrics.TotalReturn)
}

func TestSweep_Errors(t *testing.T) {
	prices, signals := sweepInput()

	_, err := Sweep(context.Background(), prices, signals[:2], []Params{DefaultParams()}, DefaultMetricsOptions(), 0)
	assert.ErrorIs(t, err, contracts.ErrLengthMismatch)

	_, err = Sweep(context.Background(), prices, signals, []Params{DefaultParams(), {InitialCapital: -5}}, DefaultMetricsOptions(), 0)
	assert.ErrorIs(t, err, contracts.ErrInvalidCapital)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Sweep(ctx, prices, signals, []Params{DefaultParams()}, DefaultMetricsOptions(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweep_EmptyGrid(t *testing.T) {
	prices, signals := sweepInput()
	results, err := Sweep(context.Background(), prices, signals, nil, DefaultMetricsOptions(), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRankBySharpe(t *testing.T) {
	results := []SweepResult{
		{Index: 0, Metrics: contracts.PerformanceMetrics{SharpeRatio: 0.5}},
		{Index: 1, Metrics: contracts.PerformanceMetrics{SharpeRatio: 1.5}},
		{Index: 2, Metrics: contracts.PerformanceMetrics{SharpeRatio: -0.2}},
	}

	ranked := RankBySharpe(results)
	assert.Equal(t, []int{1, 0, 2}, []int{ranked[0].Index, ranked[1].Index, ranked[2].Index})
	assert.Equal(t, 0, results[0].Index, "input is not reordered")
}
