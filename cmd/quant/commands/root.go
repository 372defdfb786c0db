package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "buyStock - 지수 낙폭 사이클 분석 및 백테스트",
	Long: `buyStock Unified CLI

지수 일봉에서 고점 대비 낙폭 사이클을 찾아 통계를 내고,
일별 시그널로 포트폴리오를 시뮬레이션해 성과 지표를 계산합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant cycles --csv nasdaq_2000.csv --threshold 0.10
  go run ./cmd/quant backtest run --config config/strategy/nasdaq_swing.yaml
  go run ./cmd/quant fetch --from 2000-01-01
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
