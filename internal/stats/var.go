package stats

import "math"

// VaRResult holds historical Value at Risk for one confidence level.
// Losses are expressed as positive fractions (0.03 = 3% loss).
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// HistoricalVaR 과거 수익률 기반 VaR / CVaR (Historical Simulation)
// returns: 일별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95, 0.99)
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	// 오름차순 정렬: 손실이 앞에
	sorted := Sorted(returns)

	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	result := VaRResult{Confidence: confidence}
	if sorted[idx] < 0 {
		result.VaR = -sorted[idx]
	}

	// CVaR (Expected Shortfall): VaR 이하 tail 평균
	tail := Mean(sorted[:idx+1])
	if tail < 0 {
		result.CVaR = -tail
	}

	return result
}
