package swing

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

var baseDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func series(closes ...float64) []contracts.PricePoint {
	prices := make([]contracts.PricePoint, len(closes))
	for i, c := range closes {
		prices[i] = contracts.PricePoint{Date: baseDate.AddDate(0, 0, i), Close: c}
	}
	return prices
}

func TestDetect_SingleRecoveredCycle(t *testing.T) {
	cycles, err := Detect(series(100, 95, 85, 90, 100), 0.10)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	c := cycles[0]
	assert.Equal(t, baseDate, c.PeakDate)
	assert.Equal(t, 100.0, c.PeakPrice)
	assert.Equal(t, baseDate.AddDate(0, 0, 2), c.TroughDate)
	assert.Equal(t, 85.0, c.TroughPrice)
	assert.InDelta(t, -0.15, c.Drawdown(), 1e-12)
	assert.Equal(t, 2, c.DeclineDays())

	require.NotNil(t, c.RecoveryDate)
	assert.Equal(t, baseDate.AddDate(0, 0, 4), *c.RecoveryDate)
	assert.Equal(t, 100.0, *c.RecoveryPrice)

	rd, ok := c.RecoveryDays()
	require.True(t, ok)
	assert.Equal(t, 2, rd)
}

func TestDetect_InsufficientData(t *testing.T) {
	for _, prices := range [][]contracts.PricePoint{nil, series(), series(100)} {
		cycles, err := Detect(prices, 0.10)
		require.NoError(t, err)
		assert.NotNil(t, cycles)
		assert.Empty(t, cycles)
	}
}

func TestDetect_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{0, 1, -0.1, 1.5} {
		_, err := Detect(series(100, 90), threshold)
		assert.ErrorIs(t, err, contracts.ErrInvalidThreshold, "threshold=%v", threshold)
	}
}

func TestDetect_Cases(t *testing.T) {
	tests := []struct {
		name      string
		closes    []float64
		threshold float64
		want      []struct {
			peak, trough float64
			recovered    bool
		}
	}{
		{
			name:      "rising market has no cycles",
			closes:    []float64{100, 101, 105, 110, 120},
			threshold: 0.10,
		},
		{
			name:      "shallow dip below threshold is ignored",
			closes:    []float64{100, 95, 101},
			threshold: 0.10,
		},
		{
			name:      "threshold is inclusive",
			closes:    []float64{100, 90, 101},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 90, true}},
		},
		{
			name:      "ongoing cycle at end of series",
			closes:    []float64{100, 80, 85},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 80, false}},
		},
		{
			name:      "new high closes the cycle",
			closes:    []float64{100, 85, 105, 110},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 85, true}},
		},
		{
			name:      "50% rebound starts a new cycle",
			closes:    []float64{100, 50, 80, 60},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 50, false}, {80, 60, false}},
		},
		{
			name:      "exactly 50% rebound does not reset",
			closes:    []float64{100, 50, 75},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 50, false}},
		},
		{
			name:      "two independent corrections",
			closes:    []float64{100, 88, 102, 110, 95, 112},
			threshold: 0.10,
			want: []struct {
				peak, trough float64
				recovered    bool
			}{{100, 88, true}, {110, 95, true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles, err := Detect(series(tt.closes...), tt.threshold)
			require.NoError(t, err)
			require.Len(t, cycles, len(tt.want))

			for i, w := range tt.want {
				assert.Equal(t, w.peak, cycles[i].PeakPrice, "cycle %d peak", i)
				assert.Equal(t, w.trough, cycles[i].TroughPrice, "cycle %d trough", i)
				assert.Equal(t, w.recovered, !cycles[i].IsOngoing(), "cycle %d recovered", i)
			}
		})
	}
}

func TestDetectorState_Step(t *testing.T) {
	closes := []float64{100, 85, 130}

	s := NewDetectorState(closes[0])
	s, closed := s.Step(0, closes, 0.10)
	assert.Nil(t, closed)
	assert.False(t, s.InDrawdown)

	s, closed = s.Step(1, closes, 0.10)
	assert.Nil(t, closed)
	assert.True(t, s.InDrawdown)
	assert.Equal(t, 0, s.DrawdownStartIdx)
	assert.Equal(t, 1, s.TroughIdx)
	assert.Equal(t, 85.0, s.Trough)

	// New high closes the drawdown before the rebound rule is consulted
	s, closed = s.Step(2, closes, 0.10)
	require.NotNil(t, closed)
	assert.Equal(t, ClosedDrawdown{StartIdx: 0, TroughIdx: 1}, *closed)
	assert.False(t, s.InDrawdown)
	assert.Equal(t, 130.0, s.Peak)
	assert.Equal(t, 2, s.PeakIdx)
	assert.Equal(t, s.Peak, s.Trough)

	assert.Nil(t, s.Finish())
}

func TestDetect_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		closes := make([]float64, 500)
		closes[0] = 100
		for i := 1; i < len(closes); i++ {
			closes[i] = closes[i-1] * (1 + rng.NormFloat64()*0.02)
		}
		prices := series(closes...)
		threshold := 0.05 + rng.Float64()*0.25

		cycles, err := Detect(prices, threshold)
		require.NoError(t, err)

		again, err := Detect(prices, threshold)
		require.NoError(t, err)
		assert.Equal(t, cycles, again, "detection must be idempotent")

		index := make(map[time.Time]int, len(prices))
		for i, p := range prices {
			index[p.Date] = i
		}

		for i, c := range cycles {
			assert.LessOrEqual(t, c.Drawdown(), -threshold)
			assert.False(t, c.TroughDate.Before(c.PeakDate))
			if i > 0 {
				assert.False(t, c.PeakDate.Before(cycles[i-1].PeakDate), "sorted by peak date")
			}

			if c.RecoveryDate == nil {
				for j := index[c.TroughDate]; j < len(closes); j++ {
					assert.Less(t, closes[j], c.PeakPrice, "ongoing cycle must never recover")
				}
				continue
			}

			assert.False(t, c.RecoveryDate.Before(c.TroughDate))
			assert.GreaterOrEqual(t, *c.RecoveryPrice, c.PeakPrice)
			for j := index[c.TroughDate]; j < index[*c.RecoveryDate]; j++ {
				assert.Less(t, closes[j], c.PeakPrice, "recovery must be the first close at or above the peak")
			}
		}
	}
}

func TestDetector(t *testing.T) {
	_, err := NewDetector(0, nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidThreshold)

	d, err := NewDetector(DefaultThreshold, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0.10, d.Threshold())

	cycles, err := d.Detect(series(100, 95, 85, 90, 100))
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}
