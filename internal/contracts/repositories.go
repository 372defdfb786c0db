package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrNotFound is returned when a single-row lookup finds nothing
var ErrNotFound = errors.New("not found")

// PriceRepository manages daily bars
type PriceRepository interface {
	GetRange(ctx context.Context, symbol string, from, to time.Time) ([]PricePoint, error)
	GetLatest(ctx context.Context, symbol string) (*PricePoint, error)
	SaveBatch(ctx context.Context, symbol string, prices []PricePoint) (int, error)
}

// SignalRepository manages the upstream signal stream
type SignalRepository interface {
	GetRange(ctx context.Context, symbol string, from, to time.Time) ([]DatedSignal, error)
	SaveBatch(ctx context.Context, symbol string, signals []DatedSignal) (int, error)
}

// CycleRepository persists detected cycles per (symbol, threshold)
type CycleRepository interface {
	ReplaceAll(ctx context.Context, symbol string, threshold float64, cycles []SwingCycle) error
	List(ctx context.Context, symbol string, threshold float64) ([]SwingCycle, error)
}

// BacktestRun is one persisted simulation with its provenance
type BacktestRun struct {
	RunID      uuid.UUID          `json:"run_id"`
	Symbol     string             `json:"symbol"`
	ConfigHash string             `json:"config_hash"`
	Metrics    PerformanceMetrics `json:"metrics"`
	CreatedAt  time.Time          `json:"created_at"`
}

// BacktestRepository persists backtest runs and their equity curves
type BacktestRepository interface {
	SaveRun(ctx context.Context, run BacktestRun, curve []EquityPoint) error
	GetRun(ctx context.Context, runID uuid.UUID) (*BacktestRun, error)
}
