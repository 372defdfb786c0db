package swing

import (
	"sort"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/stats"
)

// FieldStats summarises one numeric cycle field.
// Count == 0 means the field had no samples and the other values are undefined.
type FieldStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Defined reports whether at least one sample contributed
func (f FieldStats) Defined() bool {
	return f.Count > 0
}

// DrawdownStats adds dispersion and quartiles to the drawdown summary
type DrawdownStats struct {
	FieldStats
	Std float64 `json:"std"` // population (denominator N)
	P25 float64 `json:"p25"`
	P75 float64 `json:"p75"`
}

// SeverityStats summarises the cycles of one severity bucket
type SeverityStats struct {
	Bucket          contracts.SeverityBucket `json:"bucket"`
	Label           string                   `json:"label"`
	Count           int                      `json:"count"`
	AvgDrawdown     float64                  `json:"avg_drawdown"`
	AvgDeclineDays  float64                  `json:"avg_decline_days"`
	AvgRecoveryDays *float64                 `json:"avg_recovery_days"` // nil when none recovered
}

// Statistics is the aggregate view over a list of cycles
type Statistics struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Ongoing        int             `json:"ongoing"`
	Drawdown       DrawdownStats   `json:"drawdown"`
	DeclineDays    FieldStats      `json:"decline_days"`
	RecoveryDays   FieldStats      `json:"recovery_days"`
	TotalCycleDays FieldStats      `json:"total_cycle_days"`
	BySeverity     []SeverityStats `json:"by_severity"`
}

// Aggregate computes global and per-severity statistics.
// Ongoing cycles are excluded from recovery and total-cycle statistics.
// ⭐ SSOT: 사이클 통계 집계는 여기서만
func Aggregate(cycles []contracts.SwingCycle) Statistics {
	if len(cycles) == 0 {
		return Statistics{BySeverity: []SeverityStats{}}
	}

	drawdowns := make([]float64, 0, len(cycles))
	declines := make([]int, 0, len(cycles))
	recoveries := make([]int, 0, len(cycles))
	totals := make([]int, 0, len(cycles))

	result := Statistics{Total: len(cycles)}

	for _, c := range cycles {
		drawdowns = append(drawdowns, c.Drawdown())
		declines = append(declines, c.DeclineDays())

		if rd, ok := c.RecoveryDays(); ok {
			recoveries = append(recoveries, rd)
			result.Completed++
		} else {
			result.Ongoing++
		}
		if td, ok := c.TotalCycleDays(); ok {
			totals = append(totals, td)
		}
	}

	sortedDD := stats.Sorted(drawdowns)
	result.Drawdown = DrawdownStats{
		FieldStats: describe(drawdowns),
		Std:        stats.PopulationStd(drawdowns),
		P25:        stats.Percentile(sortedDD, 25),
		P75:        stats.Percentile(sortedDD, 75),
	}
	result.DeclineDays = describe(stats.Ints(declines))
	result.RecoveryDays = describe(stats.Ints(recoveries))
	result.TotalCycleDays = describe(stats.Ints(totals))
	result.BySeverity = BySeverity(cycles)

	return result
}

// BySeverity groups cycles into severity buckets, skipping empty ones
func BySeverity(cycles []contracts.SwingCycle) []SeverityStats {
	groups := make(map[contracts.SeverityBucket][]contracts.SwingCycle)
	for _, c := range cycles {
		b := c.Severity()
		groups[b] = append(groups[b], c)
	}

	out := make([]SeverityStats, 0, len(groups))
	for _, bucket := range contracts.AllSeverityBuckets() {
		members := groups[bucket]
		if len(members) == 0 {
			continue
		}

		var drawdowns, declines, recoveries []float64
		for _, c := range members {
			drawdowns = append(drawdowns, c.Drawdown())
			declines = append(declines, float64(c.DeclineDays()))
			if rd, ok := c.RecoveryDays(); ok {
				recoveries = append(recoveries, float64(rd))
			}
		}

		s := SeverityStats{
			Bucket:         bucket,
			Label:          bucket.Label(),
			Count:          len(members),
			AvgDrawdown:    stats.Mean(drawdowns),
			AvgDeclineDays: stats.Mean(declines),
		}
		if len(recoveries) > 0 {
			avg := stats.Mean(recoveries)
			s.AvgRecoveryDays = &avg
		}
		out = append(out, s)
	}

	return out
}

// MajorCycles returns cycles deeper than 20%, deepest first, at most limit (0 = all)
func MajorCycles(cycles []contracts.SwingCycle, limit int) []contracts.SwingCycle {
	major := make([]contracts.SwingCycle, 0)
	for _, c := range cycles {
		if c.Drawdown() < -0.20 {
			major = append(major, c)
		}
	}

	sort.SliceStable(major, func(a, b int) bool {
		return major[a].Drawdown() < major[b].Drawdown()
	})

	if limit > 0 && len(major) > limit {
		major = major[:limit]
	}
	return major
}

func describe(values []float64) FieldStats {
	if len(values) == 0 {
		return FieldStats{}
	}
	return FieldStats{
		Count:  len(values),
		Mean:   stats.Mean(values),
		Median: stats.Median(values),
		Min:    stats.Min(values),
		Max:    stats.Max(values),
	}
}
