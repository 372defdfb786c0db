package strategyconfig

import (
	"fmt"
)

// maxSweepSize 그리드 폭주 방지
const maxSweepSize = 1000

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.Symbol == "" {
		return ValidationError{"meta.symbol", "required"}
	}

	// === Data ===
	start, end, err := cfg.Range()
	if err != nil {
		return err
	}
	if !end.IsZero() && !start.Before(end) {
		return ValidationError{"data", "start must be before end"}
	}

	// === Cycles ===
	if cfg.Cycles.Threshold <= 0 || cfg.Cycles.Threshold >= 1 {
		return ValidationError{"cycles.threshold", "must be in (0, 1)"}
	}
	if cfg.Cycles.MajorLimit < 0 {
		return ValidationError{"cycles.major_limit", "must be >= 0"}
	}

	// === Backtest ===
	b := cfg.Backtest
	if b.InitialCapital <= 0 {
		return ValidationError{"backtest.initial_capital", "must be > 0"}
	}
	if err := validateRate(b.CommissionRate, "backtest.commission_rate"); err != nil {
		return err
	}
	if err := validateRate(b.SlippageRate, "backtest.slippage_rate"); err != nil {
		return err
	}
	if b.RiskFreeRate < 0 || b.RiskFreeRate > 1 {
		return ValidationError{"backtest.risk_free_rate", "must be in range [0, 1]"}
	}
	if b.PeriodsPerYear <= 0 {
		return ValidationError{"backtest.periods_per_year", "must be > 0"}
	}

	// === Sweep ===
	for i, capital := range cfg.Sweep.InitialCapitals {
		if capital <= 0 {
			return ValidationError{fmt.Sprintf("sweep.initial_capitals[%d]", i), "must be > 0"}
		}
	}
	for i, rate := range cfg.Sweep.CommissionRates {
		if err := validateRate(rate, fmt.Sprintf("sweep.commission_rates[%d]", i)); err != nil {
			return err
		}
	}
	for i, rate := range cfg.Sweep.SlippageRates {
		if err := validateRate(rate, fmt.Sprintf("sweep.slippage_rates[%d]", i)); err != nil {
			return err
		}
	}
	if cfg.Sweep.Concurrency < 0 {
		return ValidationError{"sweep.concurrency", "must be >= 0"}
	}
	if size := cfg.Sweep.Size(); size > maxSweepSize {
		return ValidationError{"sweep", fmt.Sprintf("grid of %d runs exceeds max=%d", size, maxSweepSize)}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 수수료가 있으면 전액 현금 상태의 STRONG_BUY는 체결되지 않음
	if cfg.Backtest.CommissionRate > 0 {
		warnings = append(warnings, Warning{
			Code:    "STRONG_BUY_UNFILLED",
			Message: "commission_rate > 0: STRONG_BUY from an all-cash state costs more than available cash and is skipped",
		})
	}

	// 임계값이 너무 작으면 잡음 사이클이 많음
	if cfg.Cycles.Threshold < 0.05 {
		warnings = append(warnings, Warning{
			Code:    "NOISY_THRESHOLD",
			Message: "cycles.threshold < 5%: expect many shallow cycles",
		})
	}

	// 과도한 거래비용
	if cfg.Backtest.CommissionRate+cfg.Backtest.SlippageRate > 0.01 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_COST",
			Message: "commission + slippage > 1% per side",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateRate는 비율 값이 [0, 1) 범위인지 검증
func validateRate(rate float64, field string) error {
	if rate < 0 || rate >= 1 {
		return ValidationError{field, "must be in range [0, 1)"}
	}
	return nil
}
