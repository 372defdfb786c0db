package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// PriceCollector pulls bars from the upstream source into storage
type PriceCollector interface {
	Collect(ctx context.Context, symbol string, from, to time.Time) (*marketdata.CollectResult, error)
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	prices        contracts.PriceRepository
	collector     PriceCollector
	defaultSymbol string
	logger        *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(prices contracts.PriceRepository, col PriceCollector, defaultSymbol string, log *logger.Logger) *DataHandler {
	return &DataHandler{
		prices:        prices,
		collector:     col,
		defaultSymbol: defaultSymbol,
		logger:        log,
	}
}

// GetQuality returns the quality report of the stored series
// GET /api/data/quality?symbol=&from=&to=
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	symbol := queryOr(r, "symbol", h.defaultSymbol)
	from, to, err := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	prices, err := h.prices.GetRange(ctx, symbol, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load prices")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve prices")
		return
	}

	report, err := marketdata.ValidateSeries(prices)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"quality": report,
		"passed":  report.Passed(),
	})
}

// CollectRequest represents a data collection request
type CollectRequest struct {
	Symbol string `json:"symbol"` // Optional: defaults to the configured market symbol
	From   string `json:"from"`   // Optional: date range start (YYYY-MM-DD)
	To     string `json:"to"`     // Optional: date range end (YYYY-MM-DD)
}

// CollectResponse represents a data collection response
type CollectResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Results interface{} `json:"results,omitempty"`
}

// Collect triggers data collection
// POST /api/data/collect
func (h *DataHandler) Collect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse request
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" {
		req.Symbol = h.defaultSymbol
	}

	// 빈 날짜는 증분 수집
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"symbol": req.Symbol,
		"from":   req.From,
		"to":     req.To,
	}).Info("Data collection triggered")

	result, err := h.collector.Collect(ctx, req.Symbol, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to collect prices")
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CollectResponse{
		Status:  "success",
		Message: "Price data collected",
		Results: result,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondErr maps domain errors onto status codes
func respondErr(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case contracts.IsConstraintViolation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "Request cancelled")
	default:
		log.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

// parseRange parses optional YYYY-MM-DD bounds; empty values stay zero
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, errors.New("invalid 'from' date format (expected YYYY-MM-DD)")
		}
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, errors.New("invalid 'to' date format (expected YYYY-MM-DD)")
		}
	}
	return from, to, nil
}
