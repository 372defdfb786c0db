package backtest_test

import (
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// ExampleSimulate replays a round trip without costs and scores it
func ExampleSimulate() {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := []contracts.PricePoint{
		{Date: start, Close: 100},
		{Date: start.AddDate(0, 0, 1), Close: 110},
		{Date: start.AddDate(0, 0, 2), Close: 110},
	}
	signals := []contracts.Signal{
		contracts.SignalStrongBuy,
		contracts.SignalStrongSell,
		contracts.SignalHold,
	}

	params := backtest.Params{InitialCapital: 100000}
	curve, err := backtest.Simulate(prices, signals, params)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, p := range curve {
		fmt.Printf("%s %-11s %-4s %.2f\n", p.Date.Format("2006-01-02"), p.Signal, p.Trade, p.PortfolioValue)
	}

	m := backtest.Compute(curve, params.InitialCapital, backtest.DefaultMetricsOptions())
	fmt.Printf("total return %.2f%%, trades %d, win rate %.1f%%\n", m.TotalReturn*100, m.TotalTrades, m.WinRate)
	// Output:
	// 2021-03-01 STRONG_BUY  BUY  100000.00
	// 2021-03-02 STRONG_SELL SELL 110000.00
	// 2021-03-03 HOLD        NONE 110000.00
	// total return 10.00%, trades 2, win rate 50.0%
}
