package swing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/config"
	"github.com/newyorkwoo/buyStock/pkg/logger"
	"github.com/newyorkwoo/buyStock/pkg/redis"
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
	if m.err != nil {
		return nil, m.err
	}
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

type memCycles struct {
	saved map[float64][]contracts.SwingCycle
}

func (m *memCycles) ReplaceAll(_ context.Context, _ string, threshold float64, cycles []contracts.SwingCycle) error {
	if m.saved == nil {
		m.saved = make(map[float64][]contracts.SwingCycle)
	}
	m.saved[threshold] = cycles
	return nil
}

func (m *memCycles) List(_ context.Context, _ string, threshold float64) ([]contracts.SwingCycle, error) {
	return m.saved[threshold], nil
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client)
}

func TestAnalyze(t *testing.T) {
	report, err := Analyze("^IXIC", series(100, 95, 85, 90, 100, 102), 0.10, DefaultMajorLimit)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Bars)
	assert.Equal(t, baseDate, report.From)
	assert.Equal(t, baseDate.AddDate(0, 0, 5), report.To)
	assert.Len(t, report.Cycles, 1)
	assert.Equal(t, 1, report.Statistics.Completed)
	assert.Empty(t, report.MajorCycles)

	require.NotNil(t, report.Status)
	assert.Equal(t, StatusNearHigh, report.Status.Code)
	require.NotNil(t, report.Recommendation)
	assert.Equal(t, ActionHold, report.Recommendation.Action)
}

func TestAnalyze_NoPrices(t *testing.T) {
	report, err := Analyze("^IXIC", nil, 0.10, 0)
	require.NoError(t, err)

	assert.Zero(t, report.Bars)
	assert.Empty(t, report.Cycles)
	assert.Nil(t, report.Status)
	assert.Nil(t, report.Recommendation)
}

func TestAnalyzerRun(t *testing.T) {
	prices := &memPrices{bars: series(100, 80, 70, 75)}
	cycles := &memCycles{}
	analyzer := NewAnalyzer(prices, cycles, disabledCache(t), logger.NewNop())

	report, err := analyzer.Run(context.Background(), RunOptions{
		Symbol:    "^IXIC",
		From:      baseDate,
		Threshold: 0.10,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Bars)
	require.Len(t, report.Cycles, 1)
	assert.True(t, report.Cycles[0].IsOngoing())
	require.Len(t, report.MajorCycles, 1)
	assert.Equal(t, StatusBearMarket, report.Status.Code)

	stored, err := cycles.List(context.Background(), "^IXIC", 0.10)
	require.NoError(t, err)
	assert.Equal(t, report.Cycles, stored)
}

func TestAnalyzerRun_Errors(t *testing.T) {
	ctx := context.Background()

	analyzer := NewAnalyzer(&memPrices{}, nil, nil, nil)
	_, err := analyzer.Run(ctx, RunOptions{Symbol: "^IXIC", Threshold: 1.2})
	assert.ErrorIs(t, err, contracts.ErrInvalidThreshold)

	// no stored bars is an empty report, not a failure
	report, err := analyzer.Run(ctx, RunOptions{Symbol: "^IXIC", Threshold: 0.10})
	require.NoError(t, err)
	assert.Zero(t, report.Bars)

	boom := errors.New("connection refused")
	analyzer = NewAnalyzer(&memPrices{err: boom}, nil, nil, nil)
	_, err = analyzer.Run(ctx, RunOptions{Symbol: "^IXIC", Threshold: 0.10})
	assert.ErrorIs(t, err, boom)
}
