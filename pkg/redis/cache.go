package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON encoded values under <prefix>:cache:<key>
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
}

// NewCache creates a cache on top of client. A disabled client yields a no-op cache.
func NewCache(client *Client) *Cache {
	return &Cache{client: client}
}

// Get decodes the cached value into dest. A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.rdb.Get(ctx, c.client.Key("cache", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.rdb.Set(ctx, c.client.Key("cache", key), data, ttl).Err()
}

const (
	TTLBacktest = 6 * time.Hour  // 같은 설정·같은 구간의 백테스트 결과
	TTLDaily    = 24 * time.Hour // 일별 분석 리포트
)

// CycleReportKey identifies a cycle analysis report for a symbol, threshold and as-of date
func CycleReportKey(symbol string, threshold float64, asOf string) string {
	return fmt.Sprintf("cycles:report:%s:%.4f:%s", symbol, threshold, asOf)
}

// BacktestKey identifies a backtest result by strategy config hash and the simulated window
func BacktestKey(symbol, configHash, from, to string) string {
	return fmt.Sprintf("backtest:%s:%s:%s:%s", symbol, configHash, from, to)
}
