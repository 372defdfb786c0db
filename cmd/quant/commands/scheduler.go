package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/internal/backtest"
	"github.com/newyorkwoo/buyStock/internal/scheduler"
	"github.com/newyorkwoo/buyStock/internal/scheduler/jobs"
	"github.com/newyorkwoo/buyStock/internal/strategyconfig"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `가격 수집과 사이클 분석을 cron 으로 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler start --strategy config/strategy/nasdaq_swing.yaml
  go run ./cmd/quant scheduler run price_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- price_collection: SCHEDULE_COLLECT_CRON (기본: 화-토 06:30, 미국장 마감 후)
- cycle_analysis:   SCHEDULE_ANALYSIS_CRON (기본: 화-토 07:00)
- backtest_refresh: --strategy 지정 시, SCHEDULE_ANALYSIS_CRON 30분 후

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStrategy   string
	schedulerThresholds []float64
	schedulerBacktestAt string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerStrategy, "strategy", "", "backtest_refresh 에 쓸 전략 YAML")
	schedulerCmd.PersistentFlags().Float64SliceVar(&schedulerThresholds, "thresholds", nil, "분석할 낙폭 임계값 (기본: SWING_THRESHOLD)")
	schedulerCmd.PersistentFlags().StringVar(&schedulerBacktestAt, "backtest-cron", "0 30 7 * * 2-6", "backtest_refresh cron")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== buyStock Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	// Entry.Next is only computed once cron is running
	sched.Start()
	defer sched.Stop()

	printJobs(sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running job: %s\n", jobName)
	started := time.Now()
	if err := sched.RunJobSync(ctx, jobName); err != nil {
		PrintError(err.Error())
		return err
	}

	PrintSuccess(fmt.Sprintf("%s completed in %.2fs", jobName, time.Since(started).Seconds()))
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		stat := sched.GetJobStats()[jobName]
		next, err := sched.NextRun(jobName)
		nextStr := "-"
		if err == nil && !next.IsZero() {
			nextStr = next.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %-18s %-18s next: %s\n", jobName, stat.Schedule, nextStr)
	}
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(true)
	if err != nil {
		return nil, nil, err
	}

	col, err := a.collector()
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	from, err := time.Parse("2006-01-02", a.cfg.Market.StartDate)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("parse MARKET_START_DATE: %w", err)
	}

	thresholds := schedulerThresholds
	if len(thresholds) == 0 {
		thresholds = []float64{a.cfg.Analysis.SwingThreshold}
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(3, 5*time.Minute))
	symbol := a.cfg.Market.Symbol

	registered := []scheduler.Job{
		jobs.NewPriceCollectionJob(col, symbol, a.cfg.Schedule.CollectCron, a.log),
		jobs.NewCycleAnalysisJob(a.analyzer(), symbol, from, thresholds, a.cfg.Schedule.AnalysisCron, a.log),
	}

	if schedulerStrategy != "" {
		runCfg, err := strategyRunConfig(schedulerStrategy)
		if err != nil {
			a.Close()
			return nil, nil, err
		}
		registered = append(registered, jobs.NewBacktestRefreshJob(a.engine(), runCfg, schedulerBacktestAt, a.log))
	}

	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}

// strategyRunConfig loads a strategy file into an engine run configuration
func strategyRunConfig(path string) (backtest.RunConfig, error) {
	sc, _, err := strategyconfig.Load(path)
	if err != nil {
		return backtest.RunConfig{}, fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(sc)
	if err != nil {
		return backtest.RunConfig{}, fmt.Errorf("hash strategy: %w", err)
	}
	from, to, err := sc.Range()
	if err != nil {
		return backtest.RunConfig{}, err
	}

	return backtest.RunConfig{
		Symbol:     sc.Meta.Symbol,
		From:       from,
		To:         to,
		Params:     sc.Params(),
		Metrics:    sc.MetricsOptions(),
		ConfigHash: hash,
	}, nil
}
