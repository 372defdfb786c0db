package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/internal/marketdata"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "가격/시그널 데이터 관리",
	Long: `일봉 수집, CSV 적재, 품질 점검을 수행합니다.

Subcommands:
  fetch    - Yahoo 차트 API 에서 일봉 수집 (DB 또는 CSV)
  import   - 가격/시그널 CSV 를 DB 에 적재
  quality  - 저장된 가격 시계열 품질 점검

Example:
  go run ./cmd/quant data fetch
  go run ./cmd/quant data fetch --from 2000-01-01 --out nasdaq_2000.csv
  go run ./cmd/quant data import --prices nasdaq_2000.csv --signals signals.csv
  go run ./cmd/quant data quality`,
}

var (
	dataFetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "일봉 수집",
		Long: `--out 이 없으면 DB 에 저장합니다. --from 이 없으면
마지막 저장 일자 다음 날부터 (비어 있으면 MARKET_START_DATE 부터) 이어 받습니다.`,
		RunE: runDataFetch,
	}

	dataImportCmd = &cobra.Command{
		Use:   "import",
		Short: "CSV 적재",
		RunE:  runDataImport,
	}

	dataQualityCmd = &cobra.Command{
		Use:   "quality",
		Short: "가격 시계열 품질 점검",
		RunE:  runDataQuality,
	}

	dataSymbol  string
	dataFrom    string
	dataTo      string
	dataOut     string
	dataPrices  string
	dataSignals string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)
	dataCmd.AddCommand(dataImportCmd)
	dataCmd.AddCommand(dataQualityCmd)

	dataCmd.PersistentFlags().StringVar(&dataSymbol, "symbol", "", "심볼 (기본: MARKET_SYMBOL)")
	dataCmd.PersistentFlags().StringVar(&dataFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	dataCmd.PersistentFlags().StringVar(&dataTo, "to", "", "종료 날짜 (YYYY-MM-DD, 기본: 오늘)")

	dataFetchCmd.Flags().StringVar(&dataOut, "out", "", "DB 대신 CSV 로 저장")
	dataImportCmd.Flags().StringVar(&dataPrices, "prices", "", "가격 CSV")
	dataImportCmd.Flags().StringVar(&dataSignals, "signals", "", "시그널 CSV (date,signal)")
}

func dataSymbolOr(def string) string {
	if dataSymbol != "" {
		return dataSymbol
	}
	return def
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	from, err := parseDateFlag("from", dataFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", dataTo)
	if err != nil {
		return err
	}

	a, err := newApp(dataOut == "")
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := dataSymbolOr(a.cfg.Market.Symbol)

	if dataOut != "" {
		if from.IsZero() {
			if from, err = time.Parse(dateLayout, a.cfg.Market.StartDate); err != nil {
				return fmt.Errorf("parse MARKET_START_DATE: %w", err)
			}
		}
		if to.IsZero() {
			to = time.Now().UTC()
		}

		prices, err := a.yahoo().FetchDaily(cmd.Context(), symbol, from, to)
		if err != nil {
			return err
		}

		f, err := os.Create(dataOut)
		if err != nil {
			return err
		}
		if err := marketdata.WritePrices(f, prices); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", dataOut, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("%d bars of %s written to %s", len(prices), symbol, dataOut))
		return nil
	}

	if err := a.db.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	col, err := a.collector()
	if err != nil {
		return err
	}

	res, err := col.Collect(cmd.Context(), symbol, from, to)
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("%s collection", symbol),
		fmt.Sprintf("Range   : %s ~ %s", formatDate(res.From), formatDate(res.To)),
		fmt.Sprintf("Fetched : %d, saved %d", res.Fetched, res.Saved),
		fmt.Sprintf("Elapsed : %.2fs", res.Elapsed.Seconds()),
	)
	printQuality(res.Quality)
	return nil
}

func runDataImport(cmd *cobra.Command, args []string) error {
	if dataPrices == "" && dataSignals == "" {
		return fmt.Errorf("--prices or --signals is required")
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	symbol := dataSymbolOr(a.cfg.Market.Symbol)

	if dataPrices != "" {
		prices, err := readPricesFile(dataPrices)
		if err != nil {
			return err
		}
		q, err := marketdata.ValidateSeries(prices)
		if err != nil {
			return err
		}
		n, err := a.priceRepo().SaveBatch(ctx, symbol, prices)
		if err != nil {
			return fmt.Errorf("save prices: %w", err)
		}
		PrintSuccess(fmt.Sprintf("%d price bars imported for %s", n, symbol))
		printQuality(q)
	}

	if dataSignals != "" {
		signals, err := readSignalsFile(dataSignals)
		if err != nil {
			return err
		}
		n, err := a.signalRepo().SaveBatch(ctx, symbol, signals)
		if err != nil {
			return fmt.Errorf("save signals: %w", err)
		}
		PrintSuccess(fmt.Sprintf("%d signals imported for %s", n, symbol))
	}

	return nil
}

func runDataQuality(cmd *cobra.Command, args []string) error {
	from, err := parseDateFlag("from", dataFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", dataTo)
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := dataSymbolOr(a.cfg.Market.Symbol)
	prices, err := a.priceRepo().GetRange(cmd.Context(), symbol, from, to)
	if err != nil {
		return err
	}

	q, err := marketdata.ValidateSeries(prices)
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("%s price quality", symbol),
		fmt.Sprintf("Range : %s ~ %s", formatDate(firstDate(prices)), formatDate(lastDate(prices))),
	)
	printQuality(q)
	return nil
}

func printQuality(q marketdata.QualityReport) {
	PrintKeyValue("bars", fmt.Sprintf("%d", q.Bars), 12)
	PrintKeyValue("coverage", fmt.Sprintf("%.2f%%", q.Coverage*100), 12)
	PrintKeyValue("gaps > 7d", fmt.Sprintf("%d (largest %dd)", q.Gaps, q.LargestGap), 12)
	if q.Passed() {
		PrintSuccess("series passed")
	} else {
		PrintWarning(fmt.Sprintf("%d non-positive closes", q.NonPositive))
	}
}
