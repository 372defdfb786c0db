package strategyconfig

import "time"

// Config는 사이클 분석 + 백테스트 실행의 전체 설정
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Data     Data     `yaml:"data" json:"data"`
	Cycles   Cycles   `yaml:"cycles" json:"cycles"`
	Backtest Backtest `yaml:"backtest" json:"backtest"`
	Sweep    Sweep    `yaml:"sweep" json:"sweep"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID  string `yaml:"strategy_id" json:"strategy_id"`
	Version     string `yaml:"version" json:"version"`
	Symbol      string `yaml:"symbol" json:"symbol"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Data 입력 구간과 (선택) 오프라인 CSV 경로
type Data struct {
	Start      string `yaml:"start" json:"start"`                                 // YYYY-MM-DD
	End        string `yaml:"end,omitempty" json:"end,omitempty"`                 // YYYY-MM-DD, empty = today
	PricesCSV  string `yaml:"prices_csv,omitempty" json:"prices_csv,omitempty"`   // overrides the database
	SignalsCSV string `yaml:"signals_csv,omitempty" json:"signals_csv,omitempty"` // overrides the database
}

// Cycles 하락 사이클 분석
type Cycles struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	MajorLimit int     `yaml:"major_limit" json:"major_limit"`
}

// Backtest 시뮬레이션 비용 모델과 지표 입력 (모두 비율, 0.001 = 0.1%)
type Backtest struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`
	SlippageRate   float64 `yaml:"slippage_rate" json:"slippage_rate"`
	RiskFreeRate   float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	PeriodsPerYear int     `yaml:"periods_per_year" json:"periods_per_year"`
}

// Sweep 비용 파라미터 그리드 (비어 있으면 backtest 값 하나만 사용)
type Sweep struct {
	InitialCapitals []float64 `yaml:"initial_capitals,omitempty" json:"initial_capitals,omitempty"`
	CommissionRates []float64 `yaml:"commission_rates,omitempty" json:"commission_rates,omitempty"`
	SlippageRates   []float64 `yaml:"slippage_rates,omitempty" json:"slippage_rates,omitempty"`
	Concurrency     int       `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
}

// Size returns the number of parameter sets the grid expands to
func (s Sweep) Size() int {
	return max1(len(s.InitialCapitals)) * max1(len(s.CommissionRates)) * max1(len(s.SlippageRates))
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// RunSnapshot 실행 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	GitCommit  string    `json:"git_commit,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
