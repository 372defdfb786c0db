package swing

import (
	"fmt"

	"github.com/newyorkwoo/buyStock/internal/contracts"
)

// Action is the suggested positioning for the current market status
type Action string

const (
	ActionHold          Action = "HOLD"
	ActionWatch         Action = "WATCH"
	ActionBuyPartial    Action = "BUY_PARTIAL"
	ActionBuy           Action = "BUY"
	ActionBuyAggressive Action = "BUY_AGGRESSIVE"
)

// EntryZone is a price level below the recent high worth accumulating at
type EntryZone struct {
	Level    string  `json:"level"`
	Price    float64 `json:"price"`
	Drawdown float64 `json:"drawdown"` // from recent high
}

// ExitZone is a rule relative to the entry price
type ExitZone struct {
	Level   string  `json:"level"`
	Trigger string  `json:"trigger"`
	Change  float64 `json:"change"` // from entry
}

// Recommendation combines the status playbook with historical context
type Recommendation struct {
	Action            Action      `json:"action"`
	Confidence        float64     `json:"confidence"`
	Reasons           []string    `json:"reasons"`
	HistoricalInsight []string    `json:"historical_insight"`
	EntryZones        []EntryZone `json:"entry_zones"`
	ExitZones         []ExitZone  `json:"exit_zones"`
}

type playbook struct {
	action     Action
	confidence float64
	reasons    []string
}

// 상태별 기본 대응
var playbooks = map[StatusCode]playbook{
	StatusNearHigh: {ActionHold, 0.4, []string{
		"Near the high, avoid chasing",
		"Wait for a pullback of 10% or more before adding",
	}},
	StatusPullback: {ActionWatch, 0.5, []string{
		"Minor pullback, watch",
		"Existing long-term holdings can be kept",
	}},
	StatusCorrection: {ActionBuyPartial, 0.6, []string{
		"Correction zone, consider building a position in tranches",
	}},
	StatusDeepCorrection: {ActionBuy, 0.7, []string{
		"Deep correction, historically a better entry",
		"Buy in tranches rather than all at once",
	}},
	StatusBearMarket: {ActionBuyAggressive, 0.75, []string{
		"Bear market, an opportunity for long-term investors",
		"Recoveries after bear markets take longer but pay off",
	}},
	StatusCrash: {ActionBuyAggressive, 0.8, []string{
		"Extreme decline, be greedy when others are fearful",
		"Buy in tranches and keep reserves for a deeper drop",
	}},
}

var entryLevels = []struct {
	level    string
	drawdown float64
}{
	{"conservative entry", -0.10},
	{"aggressive entry", -0.15},
	{"add position", -0.20},
	{"heavy position", -0.30},
}

var exitZones = []ExitZone{
	{Level: "partial profit", Trigger: "+20% from entry", Change: 0.20},
	{Level: "reduce", Trigger: "+50% from entry", Change: 0.50},
	{Level: "stop loss", Trigger: "-10% from entry", Change: -0.10},
}

// Recommend builds the action, confidence and price zones for the current status
func Recommend(cycles []contracts.SwingCycle, st Statistics, status MarketStatus) Recommendation {
	rec := Recommendation{
		Action:            ActionHold,
		Confidence:        0.5,
		Reasons:           []string{},
		HistoricalInsight: []string{},
	}

	current := status.DrawdownFromRecent

	// 현재 하락폭이 역사적 평균을 넘는 경우
	if len(cycles) > 0 && current <= st.Drawdown.Mean {
		deeper := 0
		for _, c := range cycles {
			if c.Drawdown() <= current {
				deeper++
			}
		}
		pct := float64(deeper) / float64(len(cycles)) * 100
		rec.HistoricalInsight = append(rec.HistoricalInsight,
			fmt.Sprintf("Current drawdown %.1f%% already exceeds %.0f%% of historical cycles", current*100, pct))
	}

	if pb, ok := playbooks[status.Code]; ok {
		rec.Action = pb.action
		rec.Confidence = pb.confidence
		rec.Reasons = append(rec.Reasons, pb.reasons...)
	}

	if status.Code == StatusCorrection && st.Total > 0 {
		rec.HistoricalInsight = append(rec.HistoricalInsight,
			fmt.Sprintf("Historical cycles average a %.1f%% drawdown, bottoming after %d days on average",
				st.Drawdown.Mean*100, int(st.DeclineDays.Mean)))
	}

	rec.EntryZones = make([]EntryZone, 0, len(entryLevels))
	for _, e := range entryLevels {
		rec.EntryZones = append(rec.EntryZones, EntryZone{
			Level:    e.level,
			Price:    status.RecentHigh * (1 + e.drawdown),
			Drawdown: e.drawdown,
		})
	}
	rec.ExitZones = append([]ExitZone(nil), exitZones...)

	return rec
}
