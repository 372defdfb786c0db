package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// TradeFlag marks whether a bar executed a trade
type TradeFlag int

const (
	TradeNone TradeFlag = iota
	TradeBuy
	TradeSell
)

// String returns the wire name
func (f TradeFlag) String() string {
	switch f {
	case TradeNone:
		return "NONE"
	case TradeBuy:
		return "BUY"
	case TradeSell:
		return "SELL"
	default:
		return fmt.Sprintf("TradeFlag(%d)", int(f))
	}
}

// MarshalText implements encoding.TextMarshaler
func (f TradeFlag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *TradeFlag) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE", "":
		*f = TradeNone
	case "BUY":
		*f = TradeBuy
	case "SELL":
		*f = TradeSell
	default:
		return fmt.Errorf("unknown trade flag %q", string(text))
	}
	return nil
}

// SimulationState is threaded through the simulation loop, one owner per run
// ⭐ SSOT: 포지션 상태는 값으로만 전달 (공유 금지)
type SimulationState struct {
	Position   float64 `json:"position"` // 0.0 ~ 1.0
	Cash       float64 `json:"cash"`
	EntryPrice float64 `json:"entry_price"`
}

// EquityPoint is the per-bar snapshot of the simulated portfolio
type EquityPoint struct {
	Date           time.Time `json:"date"`
	Signal         Signal    `json:"signal"`
	Close          float64   `json:"close"`
	Position       float64   `json:"position"`
	Cash           float64   `json:"cash"`
	HoldingsValue  float64   `json:"holdings_value"`
	PortfolioValue float64   `json:"portfolio_value"`
	Trade          TradeFlag `json:"trade"`
	TradeReturn    float64   `json:"trade_return"`
	HasTradeReturn bool      `json:"has_trade_return"` // true only on SELL bars
}

// PerformanceMetrics summarises a completed equity curve
// Returns are fractions (0.12 = 12%); WinRate, AvgWin and AvgLoss are percent.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	ExcessReturn     float64 `json:"excess_return"`

	Volatility          float64 `json:"volatility"`
	MaxDrawdown         float64 `json:"max_drawdown"`          // <= 0
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // bars

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"` // may be +Inf
	CalmarRatio  float64 `json:"calmar_ratio"`

	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"` // may be +Inf
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`

	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TradingDays int       `json:"trading_days"`
}

// StrategyEvaluation is the pass/fail checklist for a strategy
type StrategyEvaluation struct {
	SharpeAbove1         bool `json:"sharpe_above_1"`
	MaxDrawdownBelow20   bool `json:"max_drawdown_within_20pct"`
	WinRateAbove40       bool `json:"win_rate_above_40pct"`
	ProfitFactorAbove1_5 bool `json:"profit_factor_above_1_5"`
	BeatsBenchmark       bool `json:"beats_benchmark"`
}

// Evaluate checks the metrics against the standard strategy criteria
func (m PerformanceMetrics) Evaluate() StrategyEvaluation {
	return StrategyEvaluation{
		SharpeAbove1:         m.SharpeRatio > 1.0,
		MaxDrawdownBelow20:   m.MaxDrawdown > -0.20,
		WinRateAbove40:       m.WinRate > 40,
		ProfitFactorAbove1_5: m.ProfitFactor > 1.5,
		BeatsBenchmark:       m.ExcessReturn > 0,
	}
}

// Passed reports whether every criterion holds
func (e StrategyEvaluation) Passed() bool {
	return e.SharpeAbove1 && e.MaxDrawdownBelow20 && e.WinRateAbove40 &&
		e.ProfitFactorAbove1_5 && e.BeatsBenchmark
}

// Score returns the number of criteria met (0-5)
func (e StrategyEvaluation) Score() int {
	n := 0
	for _, ok := range []bool{e.SharpeAbove1, e.MaxDrawdownBelow20, e.WinRateAbove40, e.ProfitFactorAbove1_5, e.BeatsBenchmark} {
		if ok {
			n++
		}
	}
	return n
}

// JSONFloat encodes ±Inf as "Infinity"/"-Infinity" and NaN as null,
// which encoding/json rejects for plain float64.
type JSONFloat float64

// MarshalJSON implements json.Marshaler
func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("null"), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler
func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*f = JSONFloat(math.NaN())
		return nil
	case `"Infinity"`:
		*f = JSONFloat(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*f = JSONFloat(math.Inf(-1))
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

type performanceMetricsAlias PerformanceMetrics

type performanceMetricsJSON struct {
	performanceMetricsAlias
	SortinoRatio JSONFloat `json:"sortino_ratio"`
	ProfitFactor JSONFloat `json:"profit_factor"`
}

// MarshalJSON keeps the infinite sentinels representable
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(performanceMetricsJSON{
		performanceMetricsAlias: performanceMetricsAlias(m),
		SortinoRatio:            JSONFloat(m.SortinoRatio),
		ProfitFactor:            JSONFloat(m.ProfitFactor),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	var aux performanceMetricsJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = PerformanceMetrics(aux.performanceMetricsAlias)
	m.SortinoRatio = float64(aux.SortinoRatio)
	m.ProfitFactor = float64(aux.ProfitFactor)
	return nil
}
