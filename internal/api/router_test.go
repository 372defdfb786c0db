package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newyorkwoo/buyStock/internal/api/handlers"
	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/internal/swing"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

type stubAnalyzer struct {
	got swing.RunOptions
	err error
}

func (s *stubAnalyzer) Run(_ context.Context, opts swing.RunOptions) (*swing.Report, error) {
	s.got = opts
	if s.err != nil {
		return nil, s.err
	}
	return &swing.Report{Symbol: opts.Symbol, Threshold: opts.Threshold}, nil
}

type stubRuns struct {
	run *contracts.BacktestRun
}

func (s *stubRuns) SaveRun(_ context.Context, run contracts.BacktestRun, _ []contracts.EquityPoint) error {
	s.run = &run
	return nil
}

func (s *stubRuns) GetRun(_ context.Context, id uuid.UUID) (*contracts.BacktestRun, error) {
	if s.run == nil || s.run.RunID != id {
		return nil, contracts.ErrNotFound
	}
	return s.run, nil
}

type stubPrices struct {
	bars []contracts.PricePoint
}

func (s *stubPrices) GetRange(_ context.Context, _ string, _, _ time.Time) ([]contracts.PricePoint, error) {
	return s.bars, nil
}

func (s *stubPrices) GetLatest(_ context.Context, _ string) (*contracts.PricePoint, error) {
	return nil, contracts.ErrNotFound
}

func (s *stubPrices) SaveBatch(_ context.Context, _ string, p []contracts.PricePoint) (int, error) {
	return len(p), nil
}

type stubCollector struct {
	symbol string
}

func (s *stubCollector) Collect(_ context.Context, symbol string, from, to time.Time) (*marketdata.CollectResult, error) {
	s.symbol = symbol
	return &marketdata.CollectResult{Symbol: symbol, From: from, To: to, Fetched: 3, Saved: 3}, nil
}

type fixture struct {
	router    http.Handler
	analyzer  *stubAnalyzer
	runs      *stubRuns
	collector *stubCollector
}

func newFixture() *fixture {
	log := logger.NewNop()
	f := &fixture{
		analyzer:  &stubAnalyzer{},
		runs:      &stubRuns{},
		collector: &stubCollector{},
	}

	engine := backtest.NewEngine(nil, nil, f.runs, log)
	prices := &stubPrices{bars: []contracts.PricePoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 10},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: -1},
	}}

	f.router = NewRouter(Handlers{
		Cycles: handlers.NewCyclesHandler(f.analyzer, "^IXIC", 0.10, log),
		Backtest: handlers.NewBacktestHandler(engine, f.runs, backtest.DefaultParams(),
			backtest.DefaultMetricsOptions(), "^IXIC", log),
		Data: handlers.NewDataHandler(prices, f.collector, "^IXIC", log),
	}, log)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func bar(date string, close float64) handlers.BarDTO {
	return handlers.BarDTO{Date: date, Close: close}
}

func TestHealth(t *testing.T) {
	rec, out := newFixture().do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestDetectCycles(t *testing.T) {
	f := newFixture()

	rec, out := f.do(t, http.MethodPost, "/api/cycles/detect", handlers.DetectRequest{
		Symbol: "TEST",
		Prices: []handlers.BarDTO{
			bar("2024-01-01", 100), bar("2024-01-02", 95), bar("2024-01-03", 85),
			bar("2024-01-04", 90), bar("2024-01-05", 100),
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, 0.10, out["threshold"])
	cycles, ok := out["cycles"].([]interface{})
	require.True(t, ok)
	assert.Len(t, cycles, 1)
}

func TestDetectCycles_BadInput(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		body interface{}
	}{
		{"unsorted", handlers.DetectRequest{Prices: []handlers.BarDTO{bar("2024-01-02", 1), bar("2024-01-01", 1)}}},
		{"threshold", handlers.DetectRequest{Threshold: 1.5, Prices: []handlers.BarDTO{bar("2024-01-01", 1), bar("2024-01-02", 1)}}},
		{"date format", handlers.DetectRequest{Prices: []handlers.BarDTO{bar("01/02/2024", 1)}}},
		{"not json", "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := f.do(t, http.MethodPost, "/api/cycles/detect", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestGetCycles(t *testing.T) {
	f := newFixture()

	rec, out := f.do(t, http.MethodGet, "/api/cycles?threshold=0.2&from=2010-01-01&major_limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "^IXIC", out["symbol"])
	assert.Equal(t, 0.2, f.analyzer.got.Threshold)
	assert.Equal(t, 5, f.analyzer.got.MajorLimit)
	assert.Equal(t, time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC), f.analyzer.got.From)
	assert.True(t, f.analyzer.got.To.IsZero())

	rec, _ = f.do(t, http.MethodGet, "/api/cycles?threshold=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.analyzer.err = contracts.ErrInvalidThreshold
	rec, _ = f.do(t, http.MethodGet, "/api/cycles", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBacktestInline(t *testing.T) {
	f := newFixture()

	rec, out := f.do(t, http.MethodPost, "/api/backtest", handlers.BacktestRequest{
		Params:       json.RawMessage(`{"initial_capital":100000,"commission_rate":0,"slippage_rate":0}`),
		IncludeCurve: true,
		Persist:      true,
		Prices:       []handlers.BarDTO{bar("2024-01-02", 100), bar("2024-01-03", 100)},
		Signals: []handlers.SignalDTO{
			{Date: "2024-01-02", Signal: contracts.SignalStrongBuy},
			{Date: "2024-01-03", Signal: contracts.SignalStrongSell},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	metrics := out["metrics"].(map[string]interface{})
	assert.Equal(t, 0.0, metrics["total_return"])
	assert.Len(t, out["curve"], 2)

	require.NotNil(t, f.runs.run)
	assert.Equal(t, out["run_id"], f.runs.run.RunID.String())

	rec, out = f.do(t, http.MethodGet, "/api/backtest/"+f.runs.run.RunID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "^IXIC", out["symbol"])
}

func TestBacktestInline_ConstraintViolations(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		req  handlers.BacktestRequest
	}{
		{"length mismatch", handlers.BacktestRequest{
			Prices:  []handlers.BarDTO{bar("2024-01-02", 100), bar("2024-01-03", 100)},
			Signals: []handlers.SignalDTO{{Date: "2024-01-02", Signal: contracts.SignalHold}},
		}},
		{"date mismatch", handlers.BacktestRequest{
			Prices:  []handlers.BarDTO{bar("2024-01-02", 100)},
			Signals: []handlers.SignalDTO{{Date: "2024-01-05", Signal: contracts.SignalHold}},
		}},
		{"capital", handlers.BacktestRequest{
			Params:  json.RawMessage(`{"initial_capital":0}`),
			Prices:  []handlers.BarDTO{bar("2024-01-02", 100)},
			Signals: []handlers.SignalDTO{{Date: "2024-01-02", Signal: contracts.SignalHold}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := f.do(t, http.MethodPost, "/api/backtest", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestBacktestInline_PartialParamsKeepDefaults(t *testing.T) {
	f := newFixture()
	defaults := backtest.DefaultParams()

	rec, out := f.do(t, http.MethodPost, "/api/backtest", handlers.BacktestRequest{
		Params:  json.RawMessage(`{"initial_capital":50000}`),
		Prices:  []handlers.BarDTO{bar("2024-01-02", 100), bar("2024-01-03", 101)},
		Signals: []handlers.SignalDTO{{Date: "2024-01-02", Signal: contracts.SignalBuy}, {Date: "2024-01-03", Signal: contracts.SignalHold}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	params := out["params"].(map[string]interface{})
	assert.Equal(t, 50000.0, params["initial_capital"])
	assert.Equal(t, defaults.CommissionRate, params["commission_rate"])
	assert.Equal(t, defaults.SlippageRate, params["slippage_rate"])

	rec, _ = f.do(t, http.MethodPost, "/api/backtest", handlers.BacktestRequest{
		Params:  json.RawMessage(`{"initial_capital":"lots"}`),
		Prices:  []handlers.BarDTO{bar("2024-01-02", 100)},
		Signals: []handlers.SignalDTO{{Date: "2024-01-02", Signal: contracts.SignalHold}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBacktestRun_Errors(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodGet, "/api/backtest/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/backtest/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDataEndpoints(t *testing.T) {
	f := newFixture()

	rec, out := f.do(t, http.MethodPost, "/api/data/collect", handlers.CollectRequest{From: "2024-01-01"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "^IXIC", f.collector.symbol)

	rec, _ = f.do(t, http.MethodPost, "/api/data/collect", handlers.CollectRequest{To: "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = f.do(t, http.MethodGet, "/api/data/quality", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out["passed"])
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newFixture().router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
