package handlers

import (
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// BarDTO is a daily bar on the wire (date as YYYY-MM-DD)
type BarDTO struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume,omitempty"`
}

// SignalDTO is a dated signal on the wire
type SignalDTO struct {
	Date   string           `json:"date"`
	Signal contracts.Signal `json:"signal"`
}

func toPrices(bars []BarDTO) ([]contracts.PricePoint, error) {
	prices := make([]contracts.PricePoint, len(bars))
	for i, b := range bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, fmt.Errorf("prices[%d].date %q: expected YYYY-MM-DD", i, b.Date)
		}
		prices[i] = contracts.PricePoint{
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return prices, nil
}

func toSignals(in []SignalDTO) ([]contracts.DatedSignal, error) {
	signals := make([]contracts.DatedSignal, len(in))
	for i, s := range in {
		date, err := time.Parse("2006-01-02", s.Date)
		if err != nil {
			return nil, fmt.Errorf("signals[%d].date %q: expected YYYY-MM-DD", i, s.Date)
		}
		signals[i] = contracts.DatedSignal{Date: date, Signal: s.Signal}
	}
	return signals, nil
}
