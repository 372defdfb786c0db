package commands

import (
	"fmt"
	"time"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/internal/swing"
	"github.com/newyorkwoo/buyStock/pkg/config"
	"github.com/newyorkwoo/buyStock/pkg/database"
	"github.com/newyorkwoo/buyStock/pkg/httputil"
	"github.com/newyorkwoo/buyStock/pkg/logger"
	"github.com/newyorkwoo/buyStock/pkg/redis"
)

// app bundles the shared runtime every command builds from config
// ⭐ SSOT: 커맨드 공통 의존성 조립은 여기서만
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB  // nil for offline runs
	redis *redis.Client // disabled unless REDIS_ENABLED
}

// loadConfig reads env config and applies global flag overrides
func loadConfig(requireDB bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if requireDB {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadWithoutDB()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp loads config and logger; with requireDB it also connects Postgres and Redis
func newApp(requireDB bool) (*app, error) {
	cfg, err := loadConfig(requireDB)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: logger.New(cfg)}
	if !requireDB {
		return a, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc

	a.log.WithFields(map[string]interface{}{
		"env":   cfg.Env,
		"redis": rc.Enabled(),
	}).Debug("Runtime initialized")

	return a, nil
}

// Close releases connections opened by newApp
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) priceRepo() *marketdata.PriceRepository {
	return marketdata.NewPriceRepository(a.db.Pool)
}

func (a *app) signalRepo() *marketdata.SignalRepository {
	return marketdata.NewSignalRepository(a.db.Pool)
}

func (a *app) runRepo() *backtest.Repository {
	return backtest.NewRepository(a.db.Pool)
}

// analyzer builds the cycle analyzer with Postgres persistence and the Redis report cache
func (a *app) analyzer() *swing.Analyzer {
	return swing.NewAnalyzer(a.priceRepo(), swing.NewRepository(a.db.Pool), a.cache(), a.log)
}

// engine builds the backtest engine; strategy file runs are cached when Redis is enabled
func (a *app) engine() *backtest.Engine {
	e := backtest.NewEngine(a.priceRepo(), a.signalRepo(), a.runRepo(), a.log)
	if c := a.cache(); c != nil {
		e = e.WithCache(c)
	}
	return e
}

func (a *app) cache() *redis.Cache {
	if !a.redis.Enabled() {
		return nil
	}
	return redis.NewCache(a.redis)
}

// yahoo builds the chart client. httputil applies the in-process limiter; the Redis
// sliding window is added when Redis is enabled so several processes share one budget.
func (a *app) yahoo() *marketdata.YahooClient {
	hc := httputil.New(a.cfg, a.log)
	if a.redis.Enabled() && a.cfg.Market.RequestsPerSec > 0 {
		hc = hc.WithRateLimiter(redis.NewRateLimiter(a.redis), redis.YahooRateLimit(a.cfg.Market.RequestsPerSec))
	}
	return marketdata.NewYahooClient(hc, a.cfg.Market.YahooBaseURL, a.log)
}

// collector builds the Yahoo → Postgres collector
func (a *app) collector() (*marketdata.Collector, error) {
	start, err := time.Parse("2006-01-02", a.cfg.Market.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse MARKET_START_DATE: %w", err)
	}
	return marketdata.NewCollector(a.yahoo(), a.priceRepo(), start, a.log), nil
}

// backtestDefaults maps BACKTEST_* env settings onto simulator and metric options
func (a *app) backtestDefaults() (backtest.Params, backtest.MetricsOptions) {
	p := backtest.Params{
		InitialCapital: a.cfg.Backtest.InitialCapital,
		CommissionRate: a.cfg.Backtest.Commission,
		SlippageRate:   a.cfg.Backtest.Slippage,
	}
	m := backtest.DefaultMetricsOptions()
	m.RiskFreeRate = a.cfg.Backtest.RiskFreeRate
	return p, m
}
