package contracts

import (
	"fmt"
	"time"
)

// SwingCycle is one peak → trough → (optional) recovery excursion
// ⭐ SSOT: 생성 후 불변 (CycleDetector만 생성)
type SwingCycle struct {
	PeakDate      time.Time  `json:"peak_date"`
	PeakPrice     float64    `json:"peak_price"`
	TroughDate    time.Time  `json:"trough_date"`
	TroughPrice   float64    `json:"trough_price"`
	RecoveryDate  *time.Time `json:"recovery_date,omitempty"`
	RecoveryPrice *float64   `json:"recovery_price,omitempty"`
}

// Drawdown returns (trough - peak) / peak, always <= 0
func (c SwingCycle) Drawdown() float64 {
	return (c.TroughPrice - c.PeakPrice) / c.PeakPrice
}

// DeclineDays returns calendar days from peak to trough
func (c SwingCycle) DeclineDays() int {
	return DaysBetween(c.PeakDate, c.TroughDate)
}

// RecoveryDays returns calendar days from trough to recovery; false when ongoing
func (c SwingCycle) RecoveryDays() (int, bool) {
	if c.RecoveryDate == nil {
		return 0, false
	}
	return DaysBetween(c.TroughDate, *c.RecoveryDate), true
}

// TotalCycleDays returns calendar days from peak to recovery; false when ongoing
func (c SwingCycle) TotalCycleDays() (int, bool) {
	if c.RecoveryDate == nil {
		return 0, false
	}
	return DaysBetween(c.PeakDate, *c.RecoveryDate), true
}

// IsOngoing reports a cycle whose close never returned to the peak
func (c SwingCycle) IsOngoing() bool {
	return c.RecoveryDate == nil
}

// Severity buckets the cycle by abs(drawdown)
func (c SwingCycle) Severity() SeverityBucket {
	return BucketFor(c.Drawdown())
}

// SeverityBucket classifies a cycle by drawdown magnitude
type SeverityBucket int

const (
	Severity10To15 SeverityBucket = iota
	Severity15To20
	Severity20To30
	Severity30Plus
)

// bucket upper bounds, exclusive; the last bucket is open-ended
var severityUpperBounds = []float64{0.15, 0.20, 0.30}

// AllSeverityBuckets returns buckets in ascending magnitude
func AllSeverityBuckets() []SeverityBucket {
	return []SeverityBucket{Severity10To15, Severity15To20, Severity20To30, Severity30Plus}
}

// BucketFor returns the first bucket whose upper bound strictly exceeds abs(drawdown)
func BucketFor(drawdown float64) SeverityBucket {
	dd := drawdown
	if dd < 0 {
		dd = -dd
	}
	for i, upper := range severityUpperBounds {
		if dd < upper {
			return SeverityBucket(i)
		}
	}
	return Severity30Plus
}

// Key returns the stable identifier used in reports and JSON
func (b SeverityBucket) Key() string {
	switch b {
	case Severity10To15:
		return "correction_10_15"
	case Severity15To20:
		return "correction_15_20"
	case Severity20To30:
		return "bear_market_20_30"
	case Severity30Plus:
		return "crash_30_plus"
	default:
		return fmt.Sprintf("severity_%d", int(b))
	}
}

// Label returns a human readable label
func (b SeverityBucket) Label() string {
	switch b {
	case Severity10To15:
		return "10-15% correction"
	case Severity15To20:
		return "15-20% correction"
	case Severity20To30:
		return "20-30% bear market"
	case Severity30Plus:
		return "30%+ crash"
	default:
		return "unknown"
	}
}

// String implements fmt.Stringer
func (b SeverityBucket) String() string {
	return b.Key()
}

// MarshalText implements encoding.TextMarshaler
func (b SeverityBucket) MarshalText() ([]byte, error) {
	return []byte(b.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (b *SeverityBucket) UnmarshalText(text []byte) error {
	for _, bucket := range AllSeverityBuckets() {
		if bucket.Key() == string(text) {
			*b = bucket
			return nil
		}
	}
	return fmt.Errorf("unknown severity bucket %q", string(text))
}
