package swing

import (
	"fmt"
	"sort"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

const (
	// DefaultThreshold 기본 하락 임계값 (10%)
	DefaultThreshold = 0.10

	// reboundReset 저점 대비 반등률이 이 값을 넘으면 새 사이클 시작
	reboundReset = 0.50
)

// DetectorState is the running state of one forward scan.
// Peak and Trough belong to the currently open cycle.
type DetectorState struct {
	Peak             float64
	PeakIdx          int
	Trough           float64
	TroughIdx        int
	InDrawdown       bool
	DrawdownStartIdx int
}

// ClosedDrawdown is a drawdown that ended on some bar, before the threshold check
type ClosedDrawdown struct {
	StartIdx  int // bar of the peak that started the drawdown
	TroughIdx int
}

// NewDetectorState seeds the scan with the first close
func NewDetectorState(firstClose float64) DetectorState {
	return DetectorState{
		Peak:   firstClose,
		Trough: firstClose,
	}
}

// Step advances the scan by bar i.
// Order is fixed: new high, new low, drawdown entry, 50% rebound.
// At most one drawdown closes per bar.
func (s DetectorState) Step(i int, closes []float64, threshold float64) (DetectorState, *ClosedDrawdown) {
	price := closes[i]
	var closed *ClosedDrawdown

	if price > s.Peak {
		// 신고가: 열린 하락 구간 종료
		if s.InDrawdown {
			closed = s.close()
			s.InDrawdown = false
		}
		s.Peak, s.PeakIdx = price, i
		s.Trough, s.TroughIdx = price, i
	} else if price < s.Trough {
		s.Trough, s.TroughIdx = price, i
	}

	current := (price - s.Peak) / s.Peak
	if current <= -threshold && !s.InDrawdown {
		s.InDrawdown = true
		s.DrawdownStartIdx = s.PeakIdx
	}

	// 저점 대비 50% 초과 반등: 이전 고점 회복 없이도 새 사이클로 본다
	if s.Trough > 0 && s.InDrawdown && (price-s.Trough)/s.Trough > reboundReset {
		closed = s.close()
		s.InDrawdown = false
		s.Peak, s.PeakIdx = price, i
		s.Trough, s.TroughIdx = price, i
	}

	return s, closed
}

// Finish closes a drawdown still open at the end of the series
func (s DetectorState) Finish() *ClosedDrawdown {
	if !s.InDrawdown {
		return nil
	}
	return s.close()
}

func (s DetectorState) close() *ClosedDrawdown {
	return &ClosedDrawdown{StartIdx: s.DrawdownStartIdx, TroughIdx: s.TroughIdx}
}

// Detect scans prices once and returns every drawdown cycle deeper than threshold,
// ordered by peak date.
// ⭐ SSOT: 사이클 탐지 알고리즘은 여기서만
func Detect(prices []contracts.PricePoint, threshold float64) ([]contracts.SwingCycle, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("detect cycles (threshold=%v): %w", threshold, contracts.ErrInvalidThreshold)
	}

	cycles := make([]contracts.SwingCycle, 0)
	if len(prices) < 2 {
		return cycles, nil
	}

	closes := contracts.Closes(prices)
	state := NewDetectorState(closes[0])

	for i := range closes {
		var closed *ClosedDrawdown
		state, closed = state.Step(i, closes, threshold)
		if c, ok := qualify(closed, prices, closes, threshold); ok {
			cycles = append(cycles, c)
		}
	}

	if c, ok := qualify(state.Finish(), prices, closes, threshold); ok {
		cycles = append(cycles, c)
	}

	sort.SliceStable(cycles, func(a, b int) bool {
		return cycles[a].PeakDate.Before(cycles[b].PeakDate)
	})

	return cycles, nil
}

// qualify emits a cycle when the drawdown from the starting peak reaches threshold
func qualify(closed *ClosedDrawdown, prices []contracts.PricePoint, closes []float64, threshold float64) (contracts.SwingCycle, bool) {
	if closed == nil {
		return contracts.SwingCycle{}, false
	}

	peak := closes[closed.StartIdx]
	trough := closes[closed.TroughIdx]
	if (trough-peak)/peak > -threshold {
		return contracts.SwingCycle{}, false
	}

	cycle := contracts.SwingCycle{
		PeakDate:    prices[closed.StartIdx].Date,
		PeakPrice:   peak,
		TroughDate:  prices[closed.TroughIdx].Date,
		TroughPrice: trough,
	}

	if j := findRecovery(closes, closed.TroughIdx, peak); j >= 0 {
		date := prices[j].Date
		price := closes[j]
		cycle.RecoveryDate = &date
		cycle.RecoveryPrice = &price
	}

	return cycle, true
}

// findRecovery returns the first index at or after from whose close reaches peak, or -1
func findRecovery(closes []float64, from int, peak float64) int {
	for j := from; j < len(closes); j++ {
		if closes[j] >= peak {
			return j
		}
	}
	return -1
}

// Detector wraps Detect with a configured threshold and diagnostics
type Detector struct {
	threshold float64
	logger    *logger.Logger
}

// NewDetector creates a detector; threshold must be in (0, 1)
func NewDetector(threshold float64, log *logger.Logger) (*Detector, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("new detector (threshold=%v): %w", threshold, contracts.ErrInvalidThreshold)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Detector{
		threshold: threshold,
		logger:    log.WithComponent("cycle_detector"),
	}, nil
}

// Threshold returns the configured drawdown threshold
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect runs the scan with the configured threshold
func (d *Detector) Detect(prices []contracts.PricePoint) ([]contracts.SwingCycle, error) {
	cycles, err := Detect(prices, d.threshold)
	if err != nil {
		return nil, err
	}

	ongoing := 0
	for _, c := range cycles {
		if c.IsOngoing() {
			ongoing++
		}
	}

	d.logger.WithFields(map[string]interface{}{
		"bars":      len(prices),
		"threshold": d.threshold,
		"cycles":    len(cycles),
		"ongoing":   ongoing,
	}).Debug("Cycle detection completed")

	return cycles, nil
}
