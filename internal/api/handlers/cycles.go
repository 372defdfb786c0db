package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/internal/swing"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// CycleAnalyzer builds cycle reports from stored prices
type CycleAnalyzer interface {
	Run(ctx context.Context, opts swing.RunOptions) (*swing.Report, error)
}

// CyclesHandler handles drawdown cycle endpoints
type CyclesHandler struct {
	analyzer         CycleAnalyzer
	defaultSymbol    string
	defaultThreshold float64
	logger           *logger.Logger
}

// NewCyclesHandler creates a new cycles handler
func NewCyclesHandler(analyzer CycleAnalyzer, defaultSymbol string, defaultThreshold float64, log *logger.Logger) *CyclesHandler {
	return &CyclesHandler{
		analyzer:         analyzer,
		defaultSymbol:    defaultSymbol,
		defaultThreshold: defaultThreshold,
		logger:           log,
	}
}

// GetCycles returns the cycle report for stored prices
// GET /api/cycles?symbol=^IXIC&threshold=0.1&from=2000-01-01&to=
func (h *CyclesHandler) GetCycles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := swing.RunOptions{
		Symbol:    queryOr(r, "symbol", h.defaultSymbol),
		Threshold: h.defaultThreshold,
	}

	if v := q.Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'threshold' (expected a fraction such as 0.1)")
			return
		}
		opts.Threshold = threshold
	}
	if v := q.Get("major_limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'major_limit'")
			return
		}
		opts.MajorLimit = limit
	}

	from, to, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.From, opts.To = from, to

	report, err := h.analyzer.Run(r.Context(), opts)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// DetectRequest carries an inline series for ad-hoc detection
type DetectRequest struct {
	Symbol     string   `json:"symbol"`
	Threshold  float64  `json:"threshold"`
	MajorLimit int      `json:"major_limit"`
	Prices     []BarDTO `json:"prices"`
}

// Detect runs cycle detection on the posted series without touching storage
// POST /api/cycles/detect
func (h *CyclesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Threshold == 0 {
		req.Threshold = h.defaultThreshold
	}
	if req.MajorLimit == 0 {
		req.MajorLimit = swing.DefaultMajorLimit
	}

	prices, err := toPrices(req.Prices)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := marketdata.ValidateSeries(prices); err != nil {
		respondErr(w, h.logger, err)
		return
	}

	report, err := swing.Analyze(req.Symbol, prices, req.Threshold, req.MajorLimit)
	if err != nil {
		respondErr(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
