package backtest

import (
	"math"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/stats"
)

// zeroStd 이 값 이하의 표준편차는 0으로 취급 (상수 수익률의 부동소수 잔차)
const zeroStd = 1e-12

// MetricsOptions holds the annualization inputs
type MetricsOptions struct {
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	PeriodsPerYear int     `json:"periods_per_year" yaml:"periods_per_year"`
}

// DefaultMetricsOptions returns 2% risk-free rate and 252 trading days
func DefaultMetricsOptions() MetricsOptions {
	return MetricsOptions{
		RiskFreeRate:   0.02,
		PeriodsPerYear: 252,
	}
}

// Compute derives performance metrics from a completed equity curve.
// Degenerate inputs resolve to 0 or +Inf, never errors.
// ⭐ SSOT: 성과 지표 계산은 여기서만
func Compute(curve []contracts.EquityPoint, initialCapital float64, opts MetricsOptions) contracts.PerformanceMetrics {
	if len(curve) == 0 || initialCapital <= 0 {
		return contracts.PerformanceMetrics{}
	}
	if opts.PeriodsPerYear <= 0 {
		opts.PeriodsPerYear = DefaultMetricsOptions().PeriodsPerYear
	}
	periods := float64(opts.PeriodsPerYear)

	n := len(curve)
	first, last := curve[0], curve[n-1]

	m := contracts.PerformanceMetrics{
		StartDate:   first.Date,
		EndDate:     last.Date,
		TradingDays: n,
	}

	// 수익률
	growth := last.PortfolioValue / initialCapital
	m.TotalReturn = growth - 1
	years := float64(n) / periods
	if years > 0 {
		m.AnnualizedReturn = math.Pow(growth, 1/years) - 1
	}

	// 벤치마크: 첫 종가 기준 매수 후 보유
	if first.Close > 0 {
		benchmarkFinal := initialCapital * last.Close / first.Close
		m.BenchmarkReturn = benchmarkFinal/initialCapital - 1
	}
	m.ExcessReturn = m.TotalReturn - m.BenchmarkReturn

	// 위험
	values := PortfolioValues(curve)
	returns := DailyReturns(values)
	m.Volatility = stats.SampleStd(returns) * math.Sqrt(periods)
	m.MaxDrawdown, m.MaxDrawdownDuration = MaxDrawdown(values)

	// 위험조정 수익률
	m.SharpeRatio = SharpeRatio(returns, opts.RiskFreeRate, opts.PeriodsPerYear)
	m.SortinoRatio = SortinoRatio(returns, opts.RiskFreeRate, opts.PeriodsPerYear)
	if m.MaxDrawdown != 0 {
		m.CalmarRatio = m.AnnualizedReturn / math.Abs(m.MaxDrawdown)
	}

	// 거래 통계
	ts := TradeStatistics(curve)
	m.TotalTrades = ts.TotalTrades
	m.WinRate = ts.WinRate
	m.ProfitFactor = ts.ProfitFactor
	m.AvgWin = ts.AvgWin
	m.AvgLoss = ts.AvgLoss

	return m
}

// PortfolioValues extracts the portfolio value column
func PortfolioValues(curve []contracts.EquityPoint) []float64 {
	out := make([]float64, len(curve))
	for i, p := range curve {
		out[i] = p.PortfolioValue
	}
	return out
}

// DailyReturns returns v[i]/v[i-1] - 1 for i >= 1. Steps from a zero value are skipped.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}

// SharpeRatio annualized excess return over total volatility; 0 when undefined
func SharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}
	std := stats.SampleStd(returns)
	if std <= zeroStd {
		return 0
	}
	excess := stats.Mean(returns) - riskFreeRate/float64(periodsPerYear)
	return math.Sqrt(float64(periodsPerYear)) * excess / std
}

// SortinoRatio annualized excess return over downside volatility.
// With no negative returns it is +Inf for a positive mean return, else 0.
// A single negative return leaves the sample deviation undefined and yields 0, as Sharpe does.
func SortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}

	negatives := make([]float64, 0)
	for _, r := range returns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	if len(negatives) == 1 {
		return 0
	}

	downside := stats.SampleStd(negatives)
	if downside <= zeroStd {
		if stats.Mean(returns) > 0 {
			return math.Inf(1)
		}
		return 0
	}

	excess := stats.Mean(returns) - riskFreeRate/float64(periodsPerYear)
	return math.Sqrt(float64(periodsPerYear)) * excess / downside
}

// MaxDrawdown returns the deepest drawdown from the running maximum (<= 0)
// and the longest run of bars spent strictly below it.
func MaxDrawdown(values []float64) (float64, int) {
	if len(values) == 0 {
		return 0, 0
	}

	maxDD := 0.0
	longest, run := 0, 0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}

		dd := 0.0
		if peak > 0 {
			dd = (v - peak) / peak
		}
		if dd < maxDD {
			maxDD = dd
		}

		if dd < 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}

	return maxDD, longest
}

// TradeStats summarises trade-level outcomes. WinRate, AvgWin and AvgLoss are percent.
type TradeStats struct {
	TotalTrades  int
	Wins         int
	Losses       int
	WinRate      float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64
}

// TradeStatistics evaluates every bar that traded.
// BUY bars count as trades with a zero return.
func TradeStatistics(curve []contracts.EquityPoint) TradeStats {
	var wins, losses []float64
	total := 0

	for _, p := range curve {
		if p.Trade == contracts.TradeNone {
			continue
		}
		total++
		switch {
		case p.TradeReturn > 0:
			wins = append(wins, p.TradeReturn)
		case p.TradeReturn < 0:
			losses = append(losses, p.TradeReturn)
		}
	}

	if total == 0 {
		return TradeStats{}
	}

	ts := TradeStats{
		TotalTrades: total,
		Wins:        len(wins),
		Losses:      len(losses),
		WinRate:     float64(len(wins)) / float64(total) * 100,
		AvgWin:      stats.Mean(wins) * 100,
		AvgLoss:     stats.Mean(losses) * 100,
	}

	lossSum := math.Abs(stats.Sum(losses))
	if lossSum == 0 {
		ts.ProfitFactor = math.Inf(1)
	} else {
		ts.ProfitFactor = stats.Sum(wins) / lossSum
	}

	return ts
}
