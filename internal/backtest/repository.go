package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// Repository implements contracts.BacktestRepository
// ⭐ SSOT: 백테스트 결과 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new backtest repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores the run summary and its equity curve atomically
func (r *Repository) SaveRun(ctx context.Context, run contracts.BacktestRun, curve []contracts.EquityPoint) error {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var start, end interface{}
	if len(curve) > 0 {
		start, end = curve[0].Date, curve[len(curve)-1].Date
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO analysis.backtest_runs (run_id, symbol, config_hash, start_date, end_date, metrics, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.RunID, run.Symbol, run.ConfigHash, start, end, metrics, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(curve) > 0 {
		batch := &pgx.Batch{}
		query := `
			INSERT INTO analysis.backtest_equity
				(run_id, trade_date, signal, position, cash, holdings_value, portfolio_value, trade_flag, trade_return)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

		for _, p := range curve {
			var tradeReturn *float64
			if p.HasTradeReturn {
				v := p.TradeReturn
				tradeReturn = &v
			}
			batch.Queue(query, run.RunID, p.Date, p.Signal.String(), p.Position, p.Cash,
				p.HoldingsValue, p.PortfolioValue, p.Trade.String(), tradeReturn)
		}

		br := tx.SendBatch(ctx, batch)
		for range curve {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert equity point: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun loads a run summary by id
func (r *Repository) GetRun(ctx context.Context, runID uuid.UUID) (*contracts.BacktestRun, error) {
	var run contracts.BacktestRun
	var metrics []byte

	err := r.pool.QueryRow(ctx, `
		SELECT run_id, symbol, config_hash, metrics, created_at
		FROM analysis.backtest_runs
		WHERE run_id = $1`, runID,
	).Scan(&run.RunID, &run.Symbol, &run.ConfigHash, &metrics, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	if err := json.Unmarshal(metrics, &run.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return &run, nil
}
