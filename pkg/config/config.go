package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data source
	Market MarketConfig

	// Analysis / backtest defaults
	Analysis AnalysisConfig
	Backtest BacktestConfig

	// Scheduler
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	Enabled     bool
	Prefix      string        // namespace for every cache and rate limit key
	PingTimeout time.Duration // bound on the startup ping
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MarketConfig holds the daily bar source configuration
type MarketConfig struct {
	Symbol         string // e.g. ^IXIC
	StartDate      string // YYYY-MM-DD
	YahooBaseURL   string
	RequestsPerSec int
}

// AnalysisConfig holds drawdown cycle analysis defaults
type AnalysisConfig struct {
	SwingThreshold float64
}

// BacktestConfig holds portfolio simulation defaults
type BacktestConfig struct {
	InitialCapital float64
	Commission     float64
	Slippage       float64
	RiskFreeRate   float64
}

// ScheduleConfig holds cron expressions for scheduled jobs
type ScheduleConfig struct {
	CollectCron  string
	AnalysisCron string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	cfg := read()

	if err := cfg.validate(true); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithoutDB reads configuration for offline runs (CSV input).
// DATABASE_URL is not required.
func LoadWithoutDB() (*Config, error) {
	cfg := read()

	if err := cfg.validate(false); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func read() *Config {
	// Try multiple paths for .env file
	loadEnvFile()

	return &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			Enabled:     getEnvAsBool("REDIS_ENABLED", false),
			Prefix:      getEnv("REDIS_PREFIX", "buystock"),
			PingTimeout: getEnvAsDuration("REDIS_PING_TIMEOUT", "3s"),
		},

		Market: MarketConfig{
			Symbol:         getEnv("MARKET_SYMBOL", "^IXIC"),
			StartDate:      getEnv("MARKET_START_DATE", "2000-01-01"),
			YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			RequestsPerSec: getEnvAsInt("YAHOO_REQUESTS_PER_SEC", 2),
		},

		Analysis: AnalysisConfig{
			SwingThreshold: getEnvAsFloat("SWING_THRESHOLD", 0.10),
		},

		Backtest: BacktestConfig{
			InitialCapital: getEnvAsFloat("BACKTEST_INITIAL_CAPITAL", 100000),
			Commission:     getEnvAsFloat("BACKTEST_COMMISSION", 0.001),
			Slippage:       getEnvAsFloat("BACKTEST_SLIPPAGE", 0.0005),
			RiskFreeRate:   getEnvAsFloat("BACKTEST_RISK_FREE_RATE", 0.02),
		},

		Schedule: ScheduleConfig{
			// cron.WithSeconds() format
			CollectCron:  getEnv("SCHEDULE_COLLECT_CRON", "0 30 6 * * 2-6"),
			AnalysisCron: getEnv("SCHEDULE_ANALYSIS_CRON", "0 0 7 * * 2-6"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// validate checks if required configuration values are set
func (c *Config) validate(requireDB bool) error {
	if requireDB && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Analysis.SwingThreshold <= 0 || c.Analysis.SwingThreshold >= 1 {
		return fmt.Errorf("SWING_THRESHOLD must be in (0, 1), got %v", c.Analysis.SwingThreshold)
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("BACKTEST_INITIAL_CAPITAL must be > 0")
	}
	if c.Backtest.Commission < 0 || c.Backtest.Slippage < 0 {
		return fmt.Errorf("BACKTEST_COMMISSION and BACKTEST_SLIPPAGE must be >= 0")
	}

	if _, err := time.Parse("2006-01-02", c.Market.StartDate); err != nil {
		return fmt.Errorf("MARKET_START_DATE must be YYYY-MM-DD: %w", err)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
