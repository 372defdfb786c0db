package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

type memPrices struct {
	bars []contracts.PricePoint
	err  error
}

func (m *memPrices) GetRange(_ context.Context, _ string, from, to time.Time) ([]contracts.PricePoint, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]contracts.PricePoint, 0, len(m.bars))
	for _, p := range m.bars {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPrices) GetLatest(_ context.Context, _ string) (*contracts.PricePoint, error) {
	if len(m.bars) == 0 {
		return nil, contracts.ErrNotFound
	}
	last := m.bars[len(m.bars)-1]
	return &last, nil
}

func (m *memPrices) SaveBatch(_ context.Context, _ string, prices []contracts.PricePoint) (int, error) {
	m.bars = append(m.bars, prices...)
	return len(prices), nil
}

type memSignals struct {
	signals []contracts.DatedSignal
}

func (m *memSignals) GetRange(_ context.Context, _ string, from, to time.Time) ([]contracts.DatedSignal, error) {
	out := make([]contracts.DatedSignal, 0, len(m.signals))
	for _, s := range m.signals {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSignals) SaveBatch(_ context.Context, _ string, signals []contracts.DatedSignal) (int, error) {
	m.signals = append(m.signals, signals...)
	return len(signals), nil
}

type memRuns struct {
	runs   map[uuid.UUID]contracts.BacktestRun
	curves map[uuid.UUID][]contracts.EquityPoint
	err    error
}

func (m *memRuns) SaveRun(_ context.Context, run contracts.BacktestRun, curve []contracts.EquityPoint) error {
	if m.err != nil {
		return m.err
	}
	if m.runs == nil {
		m.runs = make(map[uuid.UUID]contracts.BacktestRun)
		m.curves = make(map[uuid.UUID][]contracts.EquityPoint)
	}
	m.runs[run.RunID] = run
	m.curves[run.RunID] = curve
	return nil
}

func (m *memRuns) GetRun(_ context.Context, id uuid.UUID) (*contracts.BacktestRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &run, nil
}

func fixture() (*memPrices, *memSignals) {
	prices := &memPrices{bars: bars(100, 102, 104, 101, 108)}
	signals := &memSignals{signals: []contracts.DatedSignal{
		{Date: baseDate, Signal: contracts.SignalStrongBuy},
		{Date: baseDate.AddDate(0, 0, 1), Signal: contracts.SignalHold},
		// day 2 has no signal
		{Date: baseDate.AddDate(0, 0, 3), Signal: contracts.SignalHold},
		{Date: baseDate.AddDate(0, 0, 4), Signal: contracts.SignalStrongSell},
	}}
	return prices, signals
}

func runConfig() RunConfig {
	return RunConfig{
		Symbol:     "^IXIC",
		From:       baseDate,
		To:         baseDate.AddDate(0, 0, 10),
		Params:     frictionless(100000),
		Metrics:    DefaultMetricsOptions(),
		ConfigHash: "abc123",
	}
}

func TestEngineRun(t *testing.T) {
	prices, signals := fixture()
	runs := &memRuns{}
	engine := NewEngine(prices, signals, runs, nil)

	cfg := runConfig()
	cfg.Persist = true

	result, err := engine.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Dropped)
	require.Len(t, result.Curve, 4)
	assert.Equal(t, "abc123", result.ConfigHash)
	assert.InDelta(t, 0.08, result.Metrics.TotalReturn, 1e-12)
	assert.Equal(t, 2, result.Metrics.TotalTrades)
	assert.Equal(t, result.Metrics.Evaluate(), result.Evaluation)

	require.Contains(t, runs.runs, result.RunID)
	saved := runs.runs[result.RunID]
	assert.Equal(t, "^IXIC", saved.Symbol)
	assert.Equal(t, result.Metrics, saved.Metrics)
	assert.Len(t, runs.curves[result.RunID], 4)
}

func TestEngineRun_WithoutPersist(t *testing.T) {
	prices, signals := fixture()
	runs := &memRuns{}

	_, err := NewEngine(prices, signals, runs, nil).Run(context.Background(), runConfig())
	require.NoError(t, err)
	assert.Empty(t, runs.runs)
}

func TestEngineRun_Errors(t *testing.T) {
	boom := errors.New("db down")
	_, signals := fixture()

	_, err := NewEngine(&memPrices{err: boom}, signals, nil, nil).Run(context.Background(), runConfig())
	assert.ErrorIs(t, err, boom)

	prices, signals := fixture()
	cfg := runConfig()
	cfg.Params.InitialCapital = 0
	_, err = NewEngine(prices, signals, nil, nil).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, contracts.ErrInvalidCapital)

	cfg = runConfig()
	cfg.Persist = true
	_, err = NewEngine(prices, signals, &memRuns{err: boom}, nil).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, boom)

	_, err = NewEngine(nil, nil, nil, nil).Run(context.Background(), cfg)
	assert.Error(t, err)
}

func TestEngineRunSeries(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)

	result, err := engine.RunSeries(context.Background(), runConfig(), bars(100, 100),
		[]contracts.Signal{contracts.SignalStrongBuy, contracts.SignalStrongSell})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, 100000.0, result.Curve[1].Cash)
	assert.Equal(t, 0.0, result.Metrics.TotalReturn)

	_, err = engine.RunSeries(context.Background(), runConfig(), bars(100), nil)
	assert.ErrorIs(t, err, contracts.ErrLengthMismatch)
}

func TestEngineRunSeries_MonteCarlo(t *testing.T) {
	engine := NewEngine(nil, nil, nil, nil)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}

	cfg := runConfig()
	cfg.MonteCarlo = &MonteCarloConfig{Paths: 50, Horizon: 20, Seed: 3, MinSamples: 30}

	result, err := engine.RunSeries(context.Background(), cfg, bars(closes...), holds(len(closes)))
	require.NoError(t, err)
	require.NotNil(t, result.MonteCarlo)
	assert.Equal(t, 59, result.MonteCarlo.InputSamples)

	cfg.MonteCarlo.MinSamples = 100
	_, err = engine.RunSeries(context.Background(), cfg, bars(closes...), holds(len(closes)))
	assert.ErrorIs(t, err, ErrTooFewReturns)
}

// memCache round-trips through JSON like the Redis cache does
type memCache struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	hits   int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttls[key] = ttl
	return nil
}

func TestEngineRunSeries_CachesByConfigHashAndWindow(t *testing.T) {
	cache := newMemCache()
	engine := NewEngine(nil, nil, nil, nil).WithCache(cache)
	prices := bars(100, 110, 110)
	signals := []contracts.Signal{contracts.SignalStrongBuy, contracts.SignalStrongSell, contracts.SignalHold}

	first, err := engine.RunSeries(context.Background(), runConfig(), prices, signals)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)
	require.Contains(t, cache.data, "backtest:^IXIC:abc123:2021-03-01:2021-03-03")

	second, err := engine.RunSeries(context.Background(), runConfig(), prices, signals)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Len(t, second.Curve, 3)

	// A longer window is a different key
	_, err = engine.RunSeries(context.Background(), runConfig(), bars(100, 110, 110, 120), holds(4))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Len(t, cache.data, 2)
}

func TestEngineRunSeries_CacheKeepsInfiniteSentinels(t *testing.T) {
	cache := newMemCache()
	engine := NewEngine(nil, nil, nil, nil).WithCache(cache)
	prices := bars(100, 110)
	signals := []contracts.Signal{contracts.SignalStrongBuy, contracts.SignalStrongSell}

	_, err := engine.RunSeries(context.Background(), runConfig(), prices, signals)
	require.NoError(t, err)

	cached, err := engine.RunSeries(context.Background(), runConfig(), prices, signals)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.True(t, math.IsInf(cached.Metrics.ProfitFactor, 1))
}

func TestEngineRunSeries_CacheBypass(t *testing.T) {
	prices := bars(100, 110)
	signals := []contracts.Signal{contracts.SignalStrongBuy, contracts.SignalStrongSell}

	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"no config hash", func(c *RunConfig) { c.ConfigHash = "" }},
		{"persisted run", func(c *RunConfig) { c.Persist = true }},
		{"monte carlo", func(c *RunConfig) {
			c.MonteCarlo = &MonteCarloConfig{Paths: 10, Seed: 1, MinSamples: 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMemCache()
			engine := NewEngine(nil, nil, &memRuns{}, nil).WithCache(cache)
			cfg := runConfig()
			tt.mutate(&cfg)

			a, err := engine.RunSeries(context.Background(), cfg, prices, signals)
			require.NoError(t, err)
			b, err := engine.RunSeries(context.Background(), cfg, prices, signals)
			require.NoError(t, err)

			assert.Empty(t, cache.data)
			assert.NotEqual(t, a.RunID, b.RunID)
		})
	}
}

func TestEngineRunSeries_CacheReadFailureStillRuns(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("redis timeout")
	engine := NewEngine(nil, nil, nil, nil).WithCache(cache)

	result, err := engine.RunSeries(context.Background(), runConfig(), bars(100, 110),
		[]contracts.Signal{contracts.SignalStrongBuy, contracts.SignalStrongSell})
	require.NoError(t, err)
	assert.InDelta(t, 0.10, result.Metrics.TotalReturn, 1e-12)
}
