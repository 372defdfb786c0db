package swing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// Repository implements contracts.CycleRepository
// ⭐ SSOT: 사이클 저장소는 여기서만 (analysis.swing_cycles)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new cycle repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceAll swaps the stored cycles of (symbol, threshold) in one transaction.
// Detection is a full rescan, so partial updates are never written.
func (r *Repository) ReplaceAll(ctx context.Context, symbol string, threshold float64, cycles []contracts.SwingCycle) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM analysis.swing_cycles WHERE symbol = $1 AND threshold = $2`,
		symbol, threshold,
	); err != nil {
		return fmt.Errorf("delete cycles: %w", err)
	}

	if len(cycles) > 0 {
		batch := &pgx.Batch{}
		query := `
			INSERT INTO analysis.swing_cycles
				(symbol, threshold, peak_date, peak_price, trough_date, trough_price, recovery_date, recovery_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		for _, c := range cycles {
			batch.Queue(query, symbol, threshold,
				c.PeakDate, c.PeakPrice, c.TroughDate, c.TroughPrice,
				c.RecoveryDate, c.RecoveryPrice)
		}

		br := tx.SendBatch(ctx, batch)
		for range cycles {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert cycle: %w", err)
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

// List returns the stored cycles ordered by peak date
func (r *Repository) List(ctx context.Context, symbol string, threshold float64) ([]contracts.SwingCycle, error) {
	query := `
		SELECT peak_date, peak_price, trough_date, trough_price, recovery_date, recovery_price
		FROM analysis.swing_cycles
		WHERE symbol = $1 AND threshold = $2
		ORDER BY peak_date ASC`

	rows, err := r.pool.Query(ctx, query, symbol, threshold)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := make([]contracts.SwingCycle, 0)
	for rows.Next() {
		var c contracts.SwingCycle
		var recoveryDate *time.Time
		var recoveryPrice *float64
		if err := rows.Scan(&c.PeakDate, &c.PeakPrice, &c.TroughDate, &c.TroughPrice, &recoveryDate, &recoveryPrice); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.RecoveryDate = recoveryDate
		c.RecoveryPrice = recoveryPrice
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}
