package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/marketdata"
	"github.com/newyorkwoo/buyStock/internal/swing"
)

// cyclesCmd represents the cycles command
var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "낙폭 사이클 분석",
	Long: `일봉 종가에서 고점 대비 threshold 이상 하락한 사이클을 찾고
심각도별 통계, 주요 사이클, 현재 상태와 대응 제안을 출력합니다.

--csv 를 주면 파일만 읽고 DB에 연결하지 않습니다.

Example:
  go run ./cmd/quant cycles --csv nasdaq_2000.csv
  go run ./cmd/quant cycles --threshold 0.15 --from 2010-01-01
  go run ./cmd/quant cycles --csv nasdaq_2000.csv --json`,
	RunE: runCycles,
}

var (
	cyclesThreshold  float64
	cyclesMajorLimit int
	cyclesCSV        string
	cyclesSymbol     string
	cyclesFrom       string
	cyclesTo         string
	cyclesJSON       bool
)

func init() {
	rootCmd.AddCommand(cyclesCmd)

	cyclesCmd.Flags().Float64Var(&cyclesThreshold, "threshold", 0, "낙폭 임계값 (0.10 = 10%, 기본: SWING_THRESHOLD)")
	cyclesCmd.Flags().IntVar(&cyclesMajorLimit, "major-limit", swing.DefaultMajorLimit, "주요 사이클 표시 개수")
	cyclesCmd.Flags().StringVar(&cyclesCSV, "csv", "", "가격 CSV 경로 (지정 시 오프라인)")
	cyclesCmd.Flags().StringVar(&cyclesSymbol, "symbol", "", "심볼 (기본: MARKET_SYMBOL)")
	cyclesCmd.Flags().StringVar(&cyclesFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	cyclesCmd.Flags().StringVar(&cyclesTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	cyclesCmd.Flags().BoolVar(&cyclesJSON, "json", false, "JSON 출력")
}

func runCycles(cmd *cobra.Command, args []string) error {
	from, err := parseDateFlag("from", cyclesFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", cyclesTo)
	if err != nil {
		return err
	}

	a, err := newApp(cyclesCSV == "")
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := cyclesSymbol
	if symbol == "" {
		symbol = a.cfg.Market.Symbol
	}
	threshold := cyclesThreshold
	if threshold == 0 {
		threshold = a.cfg.Analysis.SwingThreshold
	}

	var report *swing.Report
	if cyclesCSV != "" {
		prices, err := readPricesFile(cyclesCSV)
		if err != nil {
			return err
		}
		prices = clipPrices(prices, from, to)

		q, err := marketdata.ValidateSeries(prices)
		if err != nil {
			return err
		}
		if !q.Passed() {
			PrintWarning(fmt.Sprintf("%d non-positive closes in %s", q.NonPositive, cyclesCSV))
		}

		report, err = swing.Analyze(symbol, prices, threshold, cyclesMajorLimit)
		if err != nil {
			return err
		}
	} else {
		report, err = a.analyzer().Run(cmd.Context(), swing.RunOptions{
			Symbol:     symbol,
			From:       from,
			To:         to,
			Threshold:  threshold,
			MajorLimit: cyclesMajorLimit,
		})
		if err != nil {
			return err
		}
	}

	if cyclesJSON {
		return PrintJSON(report)
	}
	printCycleReport(report)
	return nil
}

func printCycleReport(r *swing.Report) {
	st := r.Statistics
	PrintHeader(fmt.Sprintf("%s drawdown cycles (threshold %.0f%%)", r.Symbol, r.Threshold*100),
		fmt.Sprintf("Period : %s ~ %s (%d bars)", formatDate(r.From), formatDate(r.To), r.Bars),
		fmt.Sprintf("Cycles : %d (completed %d, ongoing %d)", st.Total, st.Completed, st.Ongoing),
	)

	if st.Total == 0 {
		fmt.Println("\nNo drawdown cycles found.")
		printStatus(r)
		return
	}

	fmt.Println("\n📉 Drawdown")
	PrintKeyValue("mean", formatPct(st.Drawdown.Mean), 8)
	PrintKeyValue("median", formatPct(st.Drawdown.Median), 8)
	PrintKeyValue("worst", formatPct(st.Drawdown.Min), 8)
	PrintKeyValue("std", fmt.Sprintf("%.2f%%", st.Drawdown.Std*100), 8)
	PrintKeyValue("p25/p75", formatPct(st.Drawdown.P25)+" / "+formatPct(st.Drawdown.P75), 8)

	fmt.Println("\n⏱  Duration (calendar days)")
	PrintKeyValue("decline", fieldDays(st.DeclineDays), 10)
	PrintKeyValue("recovery", fieldDays(st.RecoveryDays), 10)
	PrintKeyValue("total", fieldDays(st.TotalCycleDays), 10)

	fmt.Println("\n📊 By severity")
	widths := []int{20, 6, 10, 12, 13}
	PrintTableHeader([]string{"Bucket", "Count", "Avg DD", "Avg Decline", "Avg Recovery"}, widths)
	for _, s := range st.BySeverity {
		recovery := "-"
		if s.AvgRecoveryDays != nil {
			recovery = fmt.Sprintf("%.0fd", *s.AvgRecoveryDays)
		}
		PrintTableRow([]string{
			s.Label,
			strconv.Itoa(s.Count),
			formatPct(s.AvgDrawdown),
			fmt.Sprintf("%.0fd", s.AvgDeclineDays),
			recovery,
		}, widths)
	}

	fmt.Printf("\n🔝 Major cycles (top %d)\n", len(r.MajorCycles))
	widths = []int{11, 11, 11, 9, 9, 9}
	PrintTableHeader([]string{"Peak", "Trough", "Recovery", "DD", "Decline", "Recover"}, widths)
	for _, c := range r.MajorCycles {
		PrintTableRow(cycleRow(c), widths)
	}

	printStatus(r)
}

func cycleRow(c contracts.SwingCycle) []string {
	recovery, recoverDays := "ongoing", "-"
	if d, ok := c.RecoveryDays(); ok {
		recovery = formatDate(*c.RecoveryDate)
		recoverDays = fmt.Sprintf("%dd", d)
	}
	return []string{
		formatDate(c.PeakDate),
		formatDate(c.TroughDate),
		recovery,
		formatPct(c.Drawdown()),
		fmt.Sprintf("%dd", c.DeclineDays()),
		recoverDays,
	}
}

func fieldDays(f swing.FieldStats) string {
	if !f.Defined() {
		return "-"
	}
	return fmt.Sprintf("mean %.0f, median %.0f, max %.0f (n=%d)", f.Mean, f.Median, f.Max, f.Count)
}

func printStatus(r *swing.Report) {
	if r.Status == nil {
		return
	}
	s := r.Status

	fmt.Println("\n📍 Current status")
	PrintKeyValue("date", formatDate(s.CurrentDate), 14)
	PrintKeyValue("close", formatNumber(s.CurrentPrice), 14)
	PrintKeyValue("from ATH", fmt.Sprintf("%s (ATH %s on %s)", formatPct(s.DrawdownFromATH), formatNumber(s.AllTimeHigh), formatDate(s.AllTimeHighDate)), 14)
	PrintKeyValue("from recent", fmt.Sprintf("%s (high %s on %s)", formatPct(s.DrawdownFromRecent), formatNumber(s.RecentHigh), formatDate(s.RecentHighDate)), 14)
	PrintKeyValue("status", fmt.Sprintf("%s - %s", s.Code, s.Code.Description()), 14)

	rec := r.Recommendation
	if rec == nil {
		return
	}
	fmt.Printf("\n💡 Recommendation: %s (confidence %.0f%%)\n", rec.Action, rec.Confidence*100)
	PrintList(rec.Reasons)
	if len(rec.HistoricalInsight) > 0 {
		fmt.Println("   History:")
		PrintList(rec.HistoricalInsight)
	}
	if len(rec.EntryZones) > 0 {
		fmt.Println("   Entry zones:")
		for _, z := range rec.EntryZones {
			PrintKeyValue(z.Level, fmt.Sprintf("%s (%s)", formatNumber(z.Price), formatPct(z.Drawdown)), 20)
		}
	}
	if len(rec.ExitZones) > 0 {
		fmt.Println("   Exit rules:")
		for _, z := range rec.ExitZones {
			PrintKeyValue(z.Level, z.Trigger, 20)
		}
	}
}
