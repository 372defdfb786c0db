package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newyorkwoo/buyStock/pkg/config"
)

// DB wraps the pgxpool.Pool and provides additional functionality
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
// ⭐ SSOT: 유일하게 pgxpool.New()를 호출하는 함수
func New(cfg *config.Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate creates the schemas and tables used by the repositories.
// Statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS market`,
	`CREATE SCHEMA IF NOT EXISTS analysis`,
	`CREATE TABLE IF NOT EXISTS market.daily_prices (
		symbol      TEXT        NOT NULL,
		trade_date  DATE        NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT      NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS market.daily_signals (
		symbol      TEXT NOT NULL,
		trade_date  DATE NOT NULL,
		signal      TEXT NOT NULL,
		PRIMARY KEY (symbol, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS analysis.swing_cycles (
		symbol         TEXT NOT NULL,
		threshold      DOUBLE PRECISION NOT NULL,
		peak_date      DATE NOT NULL,
		peak_price     DOUBLE PRECISION NOT NULL,
		trough_date    DATE NOT NULL,
		trough_price   DOUBLE PRECISION NOT NULL,
		recovery_date  DATE,
		recovery_price DOUBLE PRECISION,
		PRIMARY KEY (symbol, threshold, peak_date)
	)`,
	`CREATE TABLE IF NOT EXISTS analysis.backtest_runs (
		run_id       UUID PRIMARY KEY,
		symbol       TEXT NOT NULL,
		config_hash  TEXT NOT NULL DEFAULT '',
		start_date   DATE,
		end_date     DATE,
		metrics      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS analysis.backtest_equity (
		run_id          UUID NOT NULL REFERENCES analysis.backtest_runs(run_id) ON DELETE CASCADE,
		trade_date      DATE NOT NULL,
		signal          TEXT NOT NULL,
		position        DOUBLE PRECISION NOT NULL,
		cash            DOUBLE PRECISION NOT NULL,
		holdings_value  DOUBLE PRECISION NOT NULL,
		portfolio_value DOUBLE PRECISION NOT NULL,
		trade_flag      TEXT NOT NULL,
		trade_return    DOUBLE PRECISION,
		PRIMARY KEY (run_id, trade_date)
	)`,
}

// HealthCheck returns detailed health information about the database
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Healthy:   false,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := db.Pool.Stat()
	status.Stats = PoolStats{
		AcquiredConns: stats.AcquiredConns(),
		IdleConns:     stats.IdleConns(),
		MaxConns:      stats.MaxConns(),
		TotalConns:    stats.TotalConns(),
	}

	status.Healthy = true
	return status, nil
}

// HealthStatus represents the health status of the database
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`
	TotalConns    int32 `json:"total_conns"`
}
