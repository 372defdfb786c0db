package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetRange retrieves bars for a symbol within [from, to], oldest first
func (r *PriceRepository) GetRange(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_prices
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	prices := make([]contracts.PricePoint, 0)
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// GetLatest retrieves the most recent bar for a symbol
func (r *PriceRepository) GetLatest(ctx context.Context, symbol string) (*contracts.PricePoint, error) {
	query := `
		SELECT trade_date, open_price, high_price, low_price, close_price, volume
		FROM market.daily_prices
		WHERE symbol = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var p contracts.PricePoint
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest price: %w", err)
	}
	return &p, nil
}

// SaveBatch upserts bars and returns how many were written
func (r *PriceRepository) SaveBatch(ctx context.Context, symbol string, prices []contracts.PricePoint) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO market.daily_prices (symbol, trade_date, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(query, symbol, contracts.DateOnly(p.Date), p.Open, p.High, p.Low, p.Close, p.Volume)
	}

	return sendBatch(ctx, r.pool, batch, len(prices))
}

// sendBatch executes a queued batch and counts affected rows
func sendBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch, n int) (int, error) {
	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	saved := 0
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			return saved, fmt.Errorf("batch exec %d: %w", i, err)
		}
		saved += int(tag.RowsAffected())
	}
	return saved, nil
}
