package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/contracts"
	"github.com/newyorkwoo/buyStock/internal/strategyconfig"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "시그널 기반 포트폴리오 백테스트",
	Long: `일별 5단계 시그널(STRONG_BUY ~ STRONG_SELL)로 단일 종목 포트폴리오를
시뮬레이션하고 수익률, 리스크, 거래 지표를 계산합니다.

입력은 DB(market.daily_prices / market.daily_signals) 또는 CSV 입니다.

Example:
  go run ./cmd/quant backtest run --config config/strategy/nasdaq_swing.yaml
  go run ./cmd/quant backtest run --prices-csv nasdaq.csv --signals-csv signals.csv
  go run ./cmd/quant backtest sweep --config config/strategy/nasdaq_swing.yaml
  go run ./cmd/quant backtest show 6f1c...`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 1회 실행",
		Long: `전략 파일(--config)과 플래그로 비용 모델을 정한 뒤 한 번 실행합니다.
플래그가 전략 파일 값보다 우선합니다.

Example:
  go run ./cmd/quant backtest run --from 2010-01-01 --commission 0
  go run ./cmd/quant backtest run --config config/strategy/nasdaq_swing.yaml --persist`,
		RunE: runBacktest,
	}

	backtestSweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "비용 파라미터 그리드 실행",
		Long: `전략 파일의 sweep 그리드(자본 x 수수료 x 슬리피지)를 병렬로 실행하고
Sharpe 순으로 정렬해 출력합니다.`,
		RunE: runBacktestSweep,
	}

	backtestShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "저장된 백테스트 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  showBacktest,
	}

	// Flags
	backtestConfig     string
	backtestPricesCSV  string
	backtestSignalsCSV string
	backtestSymbol     string
	backtestFrom       string
	backtestTo         string
	backtestCapital    float64
	backtestCommission float64
	backtestSlippage   float64
	backtestPersist    bool
	backtestJSON       bool
	backtestTop        int
	backtestMCPaths    int
	backtestMCSeed     int64
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)
	backtestCmd.AddCommand(backtestSweepCmd)
	backtestCmd.AddCommand(backtestShowCmd)

	for _, c := range []*cobra.Command{backtestRunCmd, backtestSweepCmd} {
		c.Flags().StringVar(&backtestConfig, "config", "", "전략 YAML 경로")
		c.Flags().StringVar(&backtestPricesCSV, "prices-csv", "", "가격 CSV (signals-csv 와 함께 지정)")
		c.Flags().StringVar(&backtestSignalsCSV, "signals-csv", "", "시그널 CSV (date,signal)")
		c.Flags().StringVar(&backtestSymbol, "symbol", "", "심볼 (기본: 전략 파일 또는 MARKET_SYMBOL)")
		c.Flags().StringVar(&backtestFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
		c.Flags().StringVar(&backtestTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 최신)")
		c.Flags().BoolVar(&backtestJSON, "json", false, "JSON 출력")
	}

	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "초기 자본")
	backtestRunCmd.Flags().Float64Var(&backtestCommission, "commission", 0, "수수료율 (0.001 = 0.1%)")
	backtestRunCmd.Flags().Float64Var(&backtestSlippage, "slippage", 0, "슬리피지율 (0.0005 = 0.05%)")
	backtestRunCmd.Flags().BoolVar(&backtestPersist, "persist", false, "결과를 analysis.backtest_runs 에 저장")
	backtestRunCmd.Flags().IntVar(&backtestMCPaths, "mc-paths", 0, "일별 수익률 Monte Carlo 경로 수 (0 = 생략)")
	backtestRunCmd.Flags().Int64Var(&backtestMCSeed, "mc-seed", 0, "Monte Carlo 시드 (0 = 시간 기반)")

	backtestSweepCmd.Flags().IntVar(&backtestTop, "top", 10, "출력할 상위 결과 수")
}

// backtestPlan is a resolved strategy plus where its input comes from
type backtestPlan struct {
	strategy *strategyconfig.Config
	hash     string
	symbol   string
	from     time.Time
	to       time.Time
	prices   string // CSV paths; both empty means the database
	signals  string
}

func (p backtestPlan) offline() bool {
	return p.prices != "" && p.signals != ""
}

func (p backtestPlan) runConfig() backtest.RunConfig {
	return backtest.RunConfig{
		Symbol:     p.symbol,
		From:       p.from,
		To:         p.to,
		Params:     p.strategy.Params(),
		Metrics:    p.strategy.MetricsOptions(),
		ConfigHash: p.hash,
	}
}

// resolveBacktest merges env defaults, the strategy file and command flags
func resolveBacktest(cmd *cobra.Command) (*backtestPlan, error) {
	sc := strategyconfig.Defaults()
	if backtestConfig != "" {
		loaded, _, err := strategyconfig.Load(backtestConfig)
		if err != nil {
			return nil, fmt.Errorf("load strategy: %w", err)
		}
		sc = loaded
	} else if cfg, err := loadConfig(false); err == nil {
		sc.Meta.Symbol = cfg.Market.Symbol
		sc.Data.Start = cfg.Market.StartDate
		sc.Cycles.Threshold = cfg.Analysis.SwingThreshold
		sc.Backtest.InitialCapital = cfg.Backtest.InitialCapital
		sc.Backtest.CommissionRate = cfg.Backtest.Commission
		sc.Backtest.SlippageRate = cfg.Backtest.Slippage
		sc.Backtest.RiskFreeRate = cfg.Backtest.RiskFreeRate
	}

	flags := cmd.Flags()
	if backtestSymbol != "" {
		sc.Meta.Symbol = backtestSymbol
	}
	if backtestFrom != "" {
		sc.Data.Start = backtestFrom
	}
	if backtestTo != "" {
		sc.Data.End = backtestTo
	}
	if backtestPricesCSV != "" {
		sc.Data.PricesCSV = backtestPricesCSV
	}
	if backtestSignalsCSV != "" {
		sc.Data.SignalsCSV = backtestSignalsCSV
	}
	if flags.Changed("capital") {
		sc.Backtest.InitialCapital = backtestCapital
	}
	if flags.Changed("commission") {
		sc.Backtest.CommissionRate = backtestCommission
	}
	if flags.Changed("slippage") {
		sc.Backtest.SlippageRate = backtestSlippage
	}

	if err := strategyconfig.Validate(sc); err != nil {
		return nil, err
	}
	if (sc.Data.PricesCSV == "") != (sc.Data.SignalsCSV == "") {
		return nil, fmt.Errorf("prices and signals CSV must be given together")
	}

	from, to, err := sc.Range()
	if err != nil {
		return nil, err
	}
	hash, err := strategyconfig.Hash(sc)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	for _, w := range strategyconfig.Warn(sc) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	return &backtestPlan{
		strategy: sc,
		hash:     hash,
		symbol:   sc.Meta.Symbol,
		from:     from,
		to:       to,
		prices:   sc.Data.PricesCSV,
		signals:  sc.Data.SignalsCSV,
	}, nil
}

// loadSeries materializes aligned bars and signals from CSV or the database
func loadSeries(ctx context.Context, plan *backtestPlan, a *app) ([]contracts.PricePoint, []contracts.Signal, int, error) {
	var (
		prices  []contracts.PricePoint
		signals []contracts.DatedSignal
		err     error
	)

	if plan.offline() {
		if prices, err = readPricesFile(plan.prices); err != nil {
			return nil, nil, 0, err
		}
		if signals, err = readSignalsFile(plan.signals); err != nil {
			return nil, nil, 0, err
		}
		prices = clipPrices(prices, plan.from, plan.to)
		signals = clipSignals(signals, plan.from, plan.to)
	} else {
		to := plan.to
		if to.IsZero() {
			to = time.Now().UTC()
		}
		if prices, err = a.priceRepo().GetRange(ctx, plan.symbol, plan.from, to); err != nil {
			return nil, nil, 0, fmt.Errorf("load prices: %w", err)
		}
		if signals, err = a.signalRepo().GetRange(ctx, plan.symbol, plan.from, to); err != nil {
			return nil, nil, 0, fmt.Errorf("load signals: %w", err)
		}
	}

	alignedPrices, alignedSignals, dropped := backtest.Align(prices, signals)
	return alignedPrices, alignedSignals, dropped, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	plan, err := resolveBacktest(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(!plan.offline() || backtestPersist)
	if err != nil {
		return err
	}
	defer a.Close()

	runCfg := plan.runConfig()
	runCfg.Persist = backtestPersist
	if backtestMCPaths > 0 {
		mc := backtest.DefaultMonteCarloConfig()
		mc.Paths = backtestMCPaths
		mc.Seed = backtestMCSeed
		runCfg.MonteCarlo = &mc
	}

	var result *backtest.Result
	if plan.offline() {
		prices, signals, dropped, err := loadSeries(cmd.Context(), plan, a)
		if err != nil {
			return err
		}
		var runs contracts.BacktestRepository
		if a.db != nil {
			runs = a.runRepo()
		}
		result, err = backtest.NewEngine(nil, nil, runs, a.log).RunSeries(cmd.Context(), runCfg, prices, signals)
		if err != nil {
			return err
		}
		result.Dropped = dropped
	} else {
		result, err = a.engine().Run(cmd.Context(), runCfg)
		if err != nil {
			return err
		}
	}

	if backtestJSON {
		return PrintJSON(result)
	}
	printBacktestResult(result, backtestPersist)
	return nil
}

func runBacktestSweep(cmd *cobra.Command, args []string) error {
	plan, err := resolveBacktest(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(!plan.offline())
	if err != nil {
		return err
	}
	defer a.Close()

	prices, signals, dropped, err := loadSeries(cmd.Context(), plan, a)
	if err != nil {
		return err
	}
	if dropped > 0 {
		PrintWarning(fmt.Sprintf("%d price bars without a signal were skipped", dropped))
	}

	grid := plan.strategy.Grid()
	started := time.Now()
	results, err := backtest.Sweep(cmd.Context(), prices, signals, grid, plan.strategy.MetricsOptions(), plan.strategy.Sweep.Concurrency)
	if err != nil {
		return err
	}
	ranked := backtest.RankBySharpe(results)

	if backtestJSON {
		return PrintJSON(ranked)
	}

	PrintHeader(fmt.Sprintf("%s parameter sweep", plan.symbol),
		fmt.Sprintf("Bars   : %d (%s ~ %s)", len(prices), formatDate(firstDate(prices)), formatDate(lastDate(prices))),
		fmt.Sprintf("Grid   : %d runs in %.2fs", len(grid), time.Since(started).Seconds()),
		fmt.Sprintf("Config : %s", plan.hash[:12]),
	)

	widths := []int{4, 14, 8, 8, 10, 10, 8, 8, 6}
	PrintTableHeader([]string{"#", "Capital", "Comm", "Slip", "Return", "MDD", "Sharpe", "Trades", "Score"}, widths)
	for i, r := range ranked {
		if backtestTop > 0 && i >= backtestTop {
			break
		}
		PrintTableRow([]string{
			strconv.Itoa(i + 1),
			formatNumber(r.Params.InitialCapital),
			fmt.Sprintf("%.2f%%", r.Params.CommissionRate*100),
			fmt.Sprintf("%.2f%%", r.Params.SlippageRate*100),
			formatPct(r.Metrics.TotalReturn),
			formatPct(r.Metrics.MaxDrawdown),
			formatRatio(r.Metrics.SharpeRatio),
			strconv.Itoa(r.Metrics.TotalTrades),
			fmt.Sprintf("%d/5", r.Evaluation.Score()),
		}, widths)
	}
	return nil
}

func showBacktest(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", args[0], err)
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runRepo().GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Backtest %s", run.RunID),
		fmt.Sprintf("Symbol  : %s", run.Symbol),
		fmt.Sprintf("Config  : %s", run.ConfigHash),
		fmt.Sprintf("Created : %s", run.CreatedAt.Format(time.RFC3339)),
	)
	printMetrics(run.Metrics)
	return nil
}

func printBacktestResult(result *backtest.Result, persisted bool) {
	lines := []string{
		fmt.Sprintf("Period  : %s ~ %s (%d trading days)", formatDate(result.Metrics.StartDate), formatDate(result.Metrics.EndDate), result.Metrics.TradingDays),
		fmt.Sprintf("Capital : %s (commission %.2f%%, slippage %.2f%%)", formatNumber(result.Params.InitialCapital), result.Params.CommissionRate*100, result.Params.SlippageRate*100),
	}
	if result.Dropped > 0 {
		lines = append(lines, fmt.Sprintf("Skipped : %d bars without a signal", result.Dropped))
	}
	if persisted {
		lines = append(lines, fmt.Sprintf("Run ID  : %s", result.RunID))
	}
	PrintHeader(fmt.Sprintf("%s backtest", result.Symbol), lines...)

	if n := len(result.Curve); n > 0 {
		PrintKeyValue("final value", formatNumber(result.Curve[n-1].PortfolioValue), 16)
	}
	printMetrics(result.Metrics)

	fmt.Println("\n⚠️  Risk (daily, historical)")
	PrintKeyValue("VaR 95%", fmt.Sprintf("%.2f%%", result.VaR95.VaR*100), 16)
	PrintKeyValue("CVaR 95%", fmt.Sprintf("%.2f%%", result.VaR95.CVaR*100), 16)

	if mc := result.MonteCarlo; mc != nil {
		fmt.Printf("\n🎲 Monte Carlo (%d paths x %d days, seed %d)\n", mc.Config.Paths, mc.Config.Horizon, mc.Config.Seed)
		PrintKeyValue("return p5/p50/p95", fmt.Sprintf("%s / %s / %s",
			formatPct(mc.ReturnPercentile[5]), formatPct(mc.ReturnPercentile[50]), formatPct(mc.ReturnPercentile[95])), 20)
		PrintKeyValue("MDD p5/p50", fmt.Sprintf("%s / %s", formatPct(mc.DrawdownPct[5]), formatPct(mc.DrawdownPct[50])), 20)
		PrintKeyValue("P(loss)", fmt.Sprintf("%.1f%%", mc.ProbabilityLoss*100), 20)
	}

	ev := result.Evaluation
	fmt.Printf("\n🧾 Evaluation (%d/5)\n", ev.Score())
	PrintKeyValue("Sharpe > 1", check(ev.SharpeAbove1), 22)
	PrintKeyValue("MDD within 20%", check(ev.MaxDrawdownBelow20), 22)
	PrintKeyValue("Win rate > 40%", check(ev.WinRateAbove40), 22)
	PrintKeyValue("Profit factor > 1.5", check(ev.ProfitFactorAbove1_5), 22)
	PrintKeyValue("Beats buy & hold", check(ev.BeatsBenchmark), 22)

	if n := len(result.Curve); n > 0 {
		fmt.Println("\n📈 Equity curve (last 10 bars)")
		widths := []int{11, 12, 10, 14, 6}
		PrintTableHeader([]string{"Date", "Signal", "Position", "Value", "Trade"}, widths)
		start := n - 10
		if start < 0 {
			start = 0
		}
		for _, p := range result.Curve[start:] {
			PrintTableRow([]string{
				formatDate(p.Date),
				p.Signal.String(),
				fmt.Sprintf("%.4f", p.Position),
				formatNumber(p.PortfolioValue),
				p.Trade.String(),
			}, widths)
		}
	}
}

func printMetrics(m contracts.PerformanceMetrics) {
	fmt.Println("\n💰 Returns")
	PrintKeyValue("total", formatPct(m.TotalReturn), 16)
	PrintKeyValue("annualized", formatPct(m.AnnualizedReturn), 16)
	PrintKeyValue("buy & hold", formatPct(m.BenchmarkReturn), 16)
	PrintKeyValue("excess", formatPct(m.ExcessReturn), 16)

	fmt.Println("\n📉 Risk")
	PrintKeyValue("volatility", fmt.Sprintf("%.2f%%", m.Volatility*100), 16)
	PrintKeyValue("max drawdown", fmt.Sprintf("%s (%d bars)", formatPct(m.MaxDrawdown), m.MaxDrawdownDuration), 16)
	PrintKeyValue("sharpe", formatRatio(m.SharpeRatio), 16)
	PrintKeyValue("sortino", formatRatio(m.SortinoRatio), 16)
	PrintKeyValue("calmar", formatRatio(m.CalmarRatio), 16)

	fmt.Println("\n💹 Trades")
	PrintKeyValue("trades", strconv.Itoa(m.TotalTrades), 16)
	PrintKeyValue("win rate", fmt.Sprintf("%.1f%%", m.WinRate), 16)
	PrintKeyValue("profit factor", formatRatio(m.ProfitFactor), 16)
	PrintKeyValue("avg win", fmt.Sprintf("%.2f%%", m.AvgWin), 16)
	PrintKeyValue("avg loss", fmt.Sprintf("%.2f%%", m.AvgLoss), 16)
}

func check(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

func firstDate(prices []contracts.PricePoint) time.Time {
	if len(prices) == 0 {
		return time.Time{}
	}
	return prices[0].Date
}

func lastDate(prices []contracts.PricePoint) time.Time {
	if len(prices) == 0 {
		return time.Time{}
	}
	return prices[len(prices)-1].Date
}
