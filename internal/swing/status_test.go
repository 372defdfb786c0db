package swing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDrawdown(t *testing.T) {
	tests := []struct {
		drawdown float64
		want     StatusCode
	}{
		{0, StatusNearHigh},
		{-0.05, StatusNearHigh},
		{-0.06, StatusPullback},
		{-0.10, StatusPullback},
		{-0.12, StatusCorrection},
		{-0.15, StatusCorrection},
		{-0.18, StatusDeepCorrection},
		{-0.20, StatusDeepCorrection},
		{-0.25, StatusBearMarket},
		{-0.30, StatusBearMarket},
		{-0.31, StatusCrash},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.drawdown), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDrawdown(tt.drawdown))
		})
	}
}

func TestCurrentStatus_ShortSeries(t *testing.T) {
	status, ok := CurrentStatus(series(100, 120, 110, 120, 90))
	require.True(t, ok)

	assert.Equal(t, 90.0, status.CurrentPrice)
	assert.Equal(t, baseDate.AddDate(0, 0, 4), status.CurrentDate)
	assert.Equal(t, 120.0, status.AllTimeHigh)
	assert.Equal(t, baseDate.AddDate(0, 0, 1), status.AllTimeHighDate, "ties resolve to the earliest bar")
	assert.InDelta(t, -0.25, status.DrawdownFromATH, 1e-12)
	assert.Equal(t, status.AllTimeHigh, status.RecentHigh)
	assert.Equal(t, StatusBearMarket, status.Code)
}

func TestCurrentStatus_RecentWindow(t *testing.T) {
	closes := []float64{200}
	for i := 0; i < 299; i++ {
		closes = append(closes, 100)
	}
	closes = append(closes, 90)

	status, ok := CurrentStatus(series(closes...))
	require.True(t, ok)

	assert.Equal(t, 200.0, status.AllTimeHigh)
	assert.InDelta(t, -0.55, status.DrawdownFromATH, 1e-12)
	assert.Equal(t, 100.0, status.RecentHigh)
	assert.Equal(t, baseDate.AddDate(0, 0, len(closes)-recentWindow), status.RecentHighDate)
	assert.InDelta(t, -0.10, status.DrawdownFromRecent, 1e-12)
	assert.Equal(t, StatusPullback, status.Code)
}

func TestCurrentStatus_Empty(t *testing.T) {
	_, ok := CurrentStatus(nil)
	assert.False(t, ok)
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "crash", StatusCrash.Description())
	assert.Equal(t, "unknown", StatusCode("X").Description())
}
