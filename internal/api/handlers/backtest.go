package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// BacktestRunner runs simulations from storage or from inline series
type BacktestRunner interface {
	Run(ctx context.Context, cfg backtest.RunConfig) (*backtest.Result, error)
	RunSeries(ctx context.Context, cfg backtest.RunConfig, prices []contracts.PricePoint, signals []contracts.Signal) (*backtest.Result, error)
}

// BacktestHandler handles backtest endpoints
type BacktestHandler struct {
	engine        BacktestRunner
	runs          contracts.BacktestRepository // optional
	defaults      backtest.Params
	metrics       backtest.MetricsOptions
	defaultSymbol string
	logger        *logger.Logger
}

// NewBacktestHandler creates a new backtest handler. runs may be nil.
func NewBacktestHandler(
	engine BacktestRunner,
	runs contracts.BacktestRepository,
	defaults backtest.Params,
	metrics backtest.MetricsOptions,
	defaultSymbol string,
	log *logger.Logger,
) *BacktestHandler {
	return &BacktestHandler{
		engine:        engine,
		runs:          runs,
		defaults:      defaults,
		metrics:       metrics,
		defaultSymbol: defaultSymbol,
		logger:        log,
	}
}

// BacktestRequest selects stored data (symbol/from/to) or carries inline prices and signals
type BacktestRequest struct {
	Symbol       string          `json:"symbol"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Params       json.RawMessage `json:"params,omitempty"` // fields absent here keep the server defaults
	Persist      bool            `json:"persist"`
	IncludeCurve bool            `json:"include_curve"`

	Prices  []BarDTO    `json:"prices,omitempty"`
	Signals []SignalDTO `json:"signals,omitempty"`
}

// Run executes one backtest
// POST /api/backtest
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := h.defaults
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid params")
			return
		}
	}

	cfg := backtest.RunConfig{
		Symbol:  req.Symbol,
		Params:  params,
		Metrics: h.metrics,
		Persist: req.Persist,
	}
	if cfg.Symbol == "" {
		cfg.Symbol = h.defaultSymbol
	}

	var result *backtest.Result
	var err error

	if len(req.Prices) > 0 || len(req.Signals) > 0 {
		// 인라인 입력: 가격/신호 날짜가 1:1 대응해야 함
		prices, perr := toPrices(req.Prices)
		if perr != nil {
			respondError(w, http.StatusBadRequest, perr.Error())
			return
		}
		dated, serr := toSignals(req.Signals)
		if serr != nil {
			respondError(w, http.StatusBadRequest, serr.Error())
			return
		}
		signals, merr := backtest.MatchDates(prices, dated)
		if merr != nil {
			respondErr(w, h.logger, merr)
			return
		}
		result, err = h.engine.RunSeries(ctx, cfg, prices, signals)
	} else {
		cfg.From, cfg.To, err = parseRange(req.From, req.To)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err = h.engine.Run(ctx, cfg)
	}

	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	if !req.IncludeCurve {
		result.Curve = nil
	}
	respondJSON(w, http.StatusOK, result)
}

// GetRun returns a persisted run summary
// GET /api/backtest/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotImplemented, "Backtest storage is not configured")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Backtest run not found")
		return
	}
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}
