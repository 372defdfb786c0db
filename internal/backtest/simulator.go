package backtest

import (
	"fmt"
	"math"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

const (
	buyStep       = 0.5 // BUY 한 번에 늘리는 포지션
	sellHalfRatio = 0.5 // SELL 매도 비율
)

// Params holds the cost model of one simulation
type Params struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	SlippageRate   float64 `json:"slippage_rate" yaml:"slippage_rate"`
}

// DefaultParams returns 100,000 capital, 0.1% commission, 0.05% slippage
func DefaultParams() Params {
	return Params{
		InitialCapital: 100000,
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
	}
}

// Validate rejects non-positive capital and negative rates
func (p Params) Validate() error {
	if !(p.InitialCapital > 0) {
		return fmt.Errorf("initial capital %v: %w", p.InitialCapital, contracts.ErrInvalidCapital)
	}
	if p.CommissionRate < 0 || p.SlippageRate < 0 {
		return fmt.Errorf("commission %v / slippage %v: %w", p.CommissionRate, p.SlippageRate, contracts.ErrInvalidRate)
	}
	return nil
}

// NewState returns the all-cash starting state
func NewState(p Params) contracts.SimulationState {
	return contracts.SimulationState{Cash: p.InitialCapital}
}

// Step applies one bar to state and returns the new state with its snapshot.
// Sizing uses available cash. Sells are valued against initial capital scaled by
// price/entry, holdings against initial capital scaled by price/firstClose.
// ⭐ SSOT: 매매 상태 전이는 여기서만
func Step(state contracts.SimulationState, bar contracts.PricePoint, signal contracts.Signal, firstClose float64, p Params) (contracts.SimulationState, contracts.EquityPoint) {
	point := contracts.EquityPoint{
		Date:   bar.Date,
		Signal: signal,
		Close:  bar.Close,
		Trade:  contracts.TradeNone,
	}

	switch signal {
	case contracts.SignalStrongBuy, contracts.SignalBuy:
		if state.Position >= 1.0 {
			break
		}
		target := 1.0
		if signal == contracts.SignalBuy {
			target = math.Min(state.Position+buyStep, 1.0)
		}

		buyAmount := (target - state.Position) * state.Cash
		if buyAmount <= 0 {
			break
		}
		actualPrice := bar.Close * (1 + p.SlippageRate)
		cost := buyAmount * (1 + p.CommissionRate)

		// 현금 부족 시 부분 체결 없이 건너뜀
		if cost <= state.Cash {
			state.Cash -= cost
			state.Position = target
			state.EntryPrice = actualPrice
			point.Trade = contracts.TradeBuy
		}

	case contracts.SignalStrongSell, contracts.SignalSell:
		if state.Position <= 0 {
			break
		}
		sellRatio := 1.0
		if signal == contracts.SignalSell {
			sellRatio = sellHalfRatio
		}

		sellPosition := state.Position * sellRatio
		actualPrice := bar.Close * (1 - p.SlippageRate)

		scale := 1.0
		if state.EntryPrice > 0 {
			scale = actualPrice / state.EntryPrice
			point.TradeReturn = (actualPrice - state.EntryPrice) / state.EntryPrice
		}
		sellValue := sellPosition * p.InitialCapital * scale * (1 - p.CommissionRate)

		state.Cash += sellValue
		state.Position *= 1 - sellRatio
		if state.Position == 0 {
			state.EntryPrice = 0
		}
		point.Trade = contracts.TradeSell
		point.HasTradeReturn = true

	case contracts.SignalHold:
	}

	point.Position = state.Position
	point.Cash = state.Cash
	point.HoldingsValue = state.Position * p.InitialCapital * (bar.Close / firstClose)
	point.PortfolioValue = point.Cash + point.HoldingsValue

	return state, point
}

// Simulate replays signals[i] on prices[i] in order and returns one point per bar
func Simulate(prices []contracts.PricePoint, signals []contracts.Signal, p Params) ([]contracts.EquityPoint, error) {
	if len(signals) != len(prices) {
		return nil, fmt.Errorf("simulate: %d prices, %d signals: %w", len(prices), len(signals), contracts.ErrLengthMismatch)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	for i, sig := range signals {
		if !sig.Valid() {
			return nil, fmt.Errorf("simulate: bar %d signal %d: %w", i, int(sig), contracts.ErrUnknownSignal)
		}
	}

	curve := make([]contracts.EquityPoint, 0, len(prices))
	if len(prices) == 0 {
		return curve, nil
	}

	state := NewState(p)
	firstClose := prices[0].Close

	for i, bar := range prices {
		var point contracts.EquityPoint
		state, point = Step(state, bar, signals[i], firstClose, p)
		curve = append(curve, point)
	}

	return curve, nil
}

// SimulateDated is Simulate with a per-bar date check between prices and signals
func SimulateDated(prices []contracts.PricePoint, signals []contracts.DatedSignal, p Params) ([]contracts.EquityPoint, error) {
	plain, err := MatchDates(prices, signals)
	if err != nil {
		return nil, err
	}
	return Simulate(prices, plain, p)
}

// MatchDates strips dates from signals after checking they pair 1:1 with prices
func MatchDates(prices []contracts.PricePoint, signals []contracts.DatedSignal) ([]contracts.Signal, error) {
	if len(signals) != len(prices) {
		return nil, fmt.Errorf("simulate: %d prices, %d signals: %w", len(prices), len(signals), contracts.ErrLengthMismatch)
	}

	plain := make([]contracts.Signal, len(signals))
	for i, s := range signals {
		if !contracts.DateOnly(s.Date).Equal(contracts.DateOnly(prices[i].Date)) {
			return nil, fmt.Errorf("simulate: bar %d price %s signal %s: %w", i,
				prices[i].Date.Format("2006-01-02"), s.Date.Format("2006-01-02"), contracts.ErrDateMismatch)
		}
		plain[i] = s.Signal
	}
	return plain, nil
}

// Align joins prices and signals on calendar date, keeping price order.
// Bars without a signal are dropped; the second return value counts them.
func Align(prices []contracts.PricePoint, signals []contracts.DatedSignal) ([]contracts.PricePoint, []contracts.Signal, int) {
	byDate := make(map[string]contracts.Signal, len(signals))
	for _, s := range signals {
		byDate[s.Date.Format("2006-01-02")] = s.Signal
	}

	alignedPrices := make([]contracts.PricePoint, 0, len(prices))
	alignedSignals := make([]contracts.Signal, 0, len(prices))
	dropped := 0
	for _, p := range prices {
		sig, ok := byDate[p.Date.Format("2006-01-02")]
		if !ok {
			dropped++
			continue
		}
		alignedPrices = append(alignedPrices, p)
		alignedSignals = append(alignedSignals, sig)
	}

	return alignedPrices, alignedSignals, dropped
}
