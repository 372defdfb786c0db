package swing_test

import (
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/swing"
)

func dailyCloses(closes ...float64) []contracts.PricePoint {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]contracts.PricePoint, len(closes))
	for i, c := range closes {
		prices[i] = contracts.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return prices
}

// ExampleDetect shows one recovered cycle followed by one still open at the end of the series
func ExampleDetect() {
	prices := dailyCloses(100, 95, 85, 90, 100, 110, 96, 99)

	cycles, err := swing.Detect(prices, 0.10)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, c := range cycles {
		fmt.Printf("%s -> %s %.1f%% %s ongoing=%v\n",
			c.PeakDate.Format("2006-01-02"),
			c.TroughDate.Format("2006-01-02"),
			c.Drawdown()*100,
			c.Severity(),
			c.IsOngoing())
	}
	// Output:
	// 2020-01-01 -> 2020-01-03 -15.0% correction_10_15 ongoing=false
	// 2020-01-06 -> 2020-01-07 -12.7% correction_10_15 ongoing=true
}

// ExampleAggregate 집계 결과 읽기
func ExampleAggregate() {
	cycles, _ := swing.Detect(dailyCloses(100, 95, 85, 90, 100, 110, 96, 99), 0.10)
	st := swing.Aggregate(cycles)

	fmt.Printf("total=%d completed=%d ongoing=%d\n", st.Total, st.Completed, st.Ongoing)
	fmt.Printf("mean drawdown=%.2f%%\n", st.Drawdown.Mean*100)
	fmt.Printf("recovery samples=%d\n", st.RecoveryDays.Count)
	for _, b := range st.BySeverity {
		fmt.Printf("%s: %d\n", b.Label, b.Count)
	}
	// Output:
	// total=2 completed=1 ongoing=1
	// mean drawdown=-13.86%
	// recovery samples=1
	// 10-15% correction: 2
}
