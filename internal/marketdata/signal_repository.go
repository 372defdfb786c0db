package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository.
// Rows are written by the upstream signal generator; this side only reads and backfills.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// GetRange retrieves signals for a symbol within [from, to], oldest first
func (r *SignalRepository) GetRange(ctx context.Context, symbol string, from, to time.Time) ([]contracts.DatedSignal, error) {
	query := `
		SELECT trade_date, signal
		FROM market.daily_signals
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals := make([]contracts.DatedSignal, 0)
	for rows.Next() {
		var s contracts.DatedSignal
		var name string
		if err := rows.Scan(&s.Date, &name); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if s.Signal, err = contracts.ParseSignal(name); err != nil {
			return nil, fmt.Errorf("signal on %s: %w", s.Date.Format("2006-01-02"), err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// SaveBatch upserts signals and returns how many were written
func (r *SignalRepository) SaveBatch(ctx context.Context, symbol string, signals []contracts.DatedSignal) (int, error) {
	if len(signals) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO market.daily_signals (symbol, trade_date, signal)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET signal = EXCLUDED.signal
	`

	batch := &pgx.Batch{}
	for _, s := range signals {
		batch.Queue(query, symbol, contracts.DateOnly(s.Date), s.Signal.String())
	}

	return sendBatch(ctx, r.pool, batch, len(signals))
}
