package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/internal/api"
	"github.com/newyorkwoo/buyStock/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                 - Health check
  GET  /api/cycles             - 저장된 일봉으로 사이클 리포트
  POST /api/cycles/detect      - 요청 본문의 가격으로 사이클 탐지
  POST /api/backtest           - 백테스트 실행 (저장 데이터 또는 inline)
  GET  /api/backtest/{id}      - 저장된 백테스트 조회
  GET  /api/data/quality       - 가격 시계열 품질 리포트
  POST /api/data/collect       - 가격 수집 트리거

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort    string
	apiMigrate bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiMigrate, "migrate", true, "시작 시 스키마 생성")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== buyStock API Server ===")

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if apiMigrate {
		if err := a.db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	col, err := a.collector()
	if err != nil {
		return err
	}
	params, metrics := a.backtestDefaults()
	symbol := a.cfg.Market.Symbol

	router := api.NewRouter(api.Handlers{
		Cycles:   handlers.NewCyclesHandler(a.analyzer(), symbol, a.cfg.Analysis.SwingThreshold, a.log),
		Backtest: handlers.NewBacktestHandler(a.engine(), a.runRepo(), params, metrics, symbol, a.log),
		Data:     handlers.NewDataHandler(a.priceRepo(), col, symbol, a.log),
	}, a.log)

	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}
