package marketdata

import (
	"fmt"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// gapDays 이 값을 넘는 달력일 간격은 결측 구간으로 보고
const gapDays = 7

// QualityReport summarises a price series before it is analysed
type QualityReport struct {
	Bars        int     `json:"bars"`
	NonPositive int     `json:"non_positive_closes"`
	Gaps        int     `json:"gaps"` // spans longer than a week between bars
	LargestGap  int     `json:"largest_gap_days"`
	Coverage    float64 `json:"coverage"` // positive closes / bars
}

// ValidateSeries checks that dates strictly increase and closes are positive
// ⭐ SSOT: 시계열 품질 검증은 여기서만
func ValidateSeries(prices []contracts.PricePoint) (QualityReport, error) {
	report := QualityReport{Bars: len(prices)}
	if len(prices) == 0 {
		return report, nil
	}

	for i, p := range prices {
		if !(p.Close > 0) {
			report.NonPositive++
		}
		if i == 0 {
			continue
		}

		prev := prices[i-1].Date
		if !p.Date.After(prev) {
			return report, fmt.Errorf("bar %d (%s) not after %s: %w", i,
				p.Date.Format("2006-01-02"), prev.Format("2006-01-02"), contracts.ErrUnsortedSeries)
		}

		if gap := contracts.DaysBetween(prev, p.Date); gap > gapDays {
			report.Gaps++
			if gap > report.LargestGap {
				report.LargestGap = gap
			}
		}
	}

	report.Coverage = float64(report.Bars-report.NonPositive) / float64(report.Bars)
	return report, nil
}

// Passed reports whether the series is fit for cycle analysis
func (q QualityReport) Passed() bool {
	return q.NonPositive == 0
}
