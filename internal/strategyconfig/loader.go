package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newyorkwoo/buyStock/internal/backtest"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML bytes. Omitted fields take Defaults().
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the baseline configuration a file is layered onto
func Defaults() *Config {
	p := backtest.DefaultParams()
	m := backtest.DefaultMetricsOptions()
	return &Config{
		Meta: Meta{Version: "1", Symbol: "^IXIC"},
		Data: Data{Start: "2000-01-01"},
		Cycles: Cycles{
			Threshold:  0.10,
			MajorLimit: 10,
		},
		Backtest: Backtest{
			InitialCapital: p.InitialCapital,
			CommissionRate: p.CommissionRate,
			SlippageRate:   p.SlippageRate,
			RiskFreeRate:   m.RiskFreeRate,
			PeriodsPerYear: m.PeriodsPerYear,
		},
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	// Struct → JSON (결정적 순서)
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot creates a snapshot for run provenance
func NewRunSnapshot(cfg *Config, yamlData []byte, gitCommit string) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &RunSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		StrategyID: cfg.Meta.StrategyID,
		Symbol:     cfg.Meta.Symbol,
		GitCommit:  gitCommit,
		CreatedAt:  time.Now(),
	}, nil
}

// Params returns the single-run simulation parameters
func (c *Config) Params() backtest.Params {
	return backtest.Params{
		InitialCapital: c.Backtest.InitialCapital,
		CommissionRate: c.Backtest.CommissionRate,
		SlippageRate:   c.Backtest.SlippageRate,
	}
}

// MetricsOptions returns the annualization inputs
func (c *Config) MetricsOptions() backtest.MetricsOptions {
	return backtest.MetricsOptions{
		RiskFreeRate:   c.Backtest.RiskFreeRate,
		PeriodsPerYear: c.Backtest.PeriodsPerYear,
	}
}

// Grid expands the sweep into parameter sets (capital, then commission, then slippage).
// Empty axes fall back to the backtest value.
func (c *Config) Grid() []backtest.Params {
	capitals := orDefault(c.Sweep.InitialCapitals, c.Backtest.InitialCapital)
	commissions := orDefault(c.Sweep.CommissionRates, c.Backtest.CommissionRate)
	slippages := orDefault(c.Sweep.SlippageRates, c.Backtest.SlippageRate)

	grid := make([]backtest.Params, 0, len(capitals)*len(commissions)*len(slippages))
	for _, capital := range capitals {
		for _, comm := range commissions {
			for _, slip := range slippages {
				grid = append(grid, backtest.Params{
					InitialCapital: capital,
					CommissionRate: comm,
					SlippageRate:   slip,
				})
			}
		}
	}
	return grid
}

// Range parses the data window. A zero end means open-ended.
func (c *Config) Range() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.Data.Start)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationError{"data.start", "must be YYYY-MM-DD"}
	}
	if c.Data.End == "" {
		return start, time.Time{}, nil
	}
	end, err := time.Parse("2006-01-02", c.Data.End)
	if err != nil {
		return time.Time{}, time.Time{}, ValidationError{"data.end", "must be YYYY-MM-DD"}
	}
	return start, end, nil
}

func orDefault(values []float64, fallback float64) []float64 {
	if len(values) == 0 {
		return []float64{fallback}
	}
	return values
}
