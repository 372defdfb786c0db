package swing

import (
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// recentWindow 최근 고점 산출 구간 (1년 거래일)
const recentWindow = 252

// StatusCode classifies the current drawdown from the recent high
type StatusCode string

const (
	StatusNearHigh       StatusCode = "NEAR_HIGH"       // >= -5%
	StatusPullback       StatusCode = "PULLBACK"        // >= -10%
	StatusCorrection     StatusCode = "CORRECTION"      // >= -15%
	StatusDeepCorrection StatusCode = "DEEP_CORRECTION" // >= -20%
	StatusBearMarket     StatusCode = "BEAR_MARKET"     // >= -30%
	StatusCrash          StatusCode = "CRASH"
)

// Description returns a short human readable description
func (s StatusCode) Description() string {
	switch s {
	case StatusNearHigh:
		return "near the high"
	case StatusPullback:
		return "minor pullback"
	case StatusCorrection:
		return "correction"
	case StatusDeepCorrection:
		return "deep correction"
	case StatusBearMarket:
		return "bear market"
	case StatusCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// ClassifyDrawdown maps a drawdown (<= 0) to a status code
func ClassifyDrawdown(drawdown float64) StatusCode {
	switch {
	case drawdown >= -0.05:
		return StatusNearHigh
	case drawdown >= -0.10:
		return StatusPullback
	case drawdown >= -0.15:
		return StatusCorrection
	case drawdown >= -0.20:
		return StatusDeepCorrection
	case drawdown >= -0.30:
		return StatusBearMarket
	default:
		return StatusCrash
	}
}

// MarketStatus is the position of the latest close relative to past highs
type MarketStatus struct {
	CurrentDate        time.Time  `json:"current_date"`
	CurrentPrice       float64    `json:"current_price"`
	AllTimeHigh        float64    `json:"all_time_high"`
	AllTimeHighDate    time.Time  `json:"all_time_high_date"`
	DrawdownFromATH    float64    `json:"drawdown_from_ath"`
	RecentHigh         float64    `json:"recent_high"`
	RecentHighDate     time.Time  `json:"recent_high_date"`
	DrawdownFromRecent float64    `json:"drawdown_from_recent"`
	Code               StatusCode `json:"status_code"`
}

// CurrentStatus evaluates the last bar; false when prices is empty.
// Ties on the high resolve to the earliest bar.
func CurrentStatus(prices []contracts.PricePoint) (MarketStatus, bool) {
	n := len(prices)
	if n == 0 {
		return MarketStatus{}, false
	}

	athIdx := argMax(prices, 0)
	start := n - recentWindow
	if start < 0 {
		start = 0
	}
	recentIdx := argMax(prices, start)

	last := prices[n-1]
	status := MarketStatus{
		CurrentDate:     last.Date,
		CurrentPrice:    last.Close,
		AllTimeHigh:     prices[athIdx].Close,
		AllTimeHighDate: prices[athIdx].Date,
		RecentHigh:      prices[recentIdx].Close,
		RecentHighDate:  prices[recentIdx].Date,
	}
	status.DrawdownFromATH = (last.Close - status.AllTimeHigh) / status.AllTimeHigh
	status.DrawdownFromRecent = (last.Close - status.RecentHigh) / status.RecentHigh
	status.Code = ClassifyDrawdown(status.DrawdownFromRecent)

	return status, true
}

func argMax(prices []contracts.PricePoint, from int) int {
	best := from
	for i := from + 1; i < len(prices); i++ {
		if prices[i].Close > prices[best].Close {
			best = i
		}
	}
	return best
}
