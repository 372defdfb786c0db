package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newyorkwoo/buyStock/pkg/config"
	"github.com/newyorkwoo/buyStock/pkg/logger"
)

// testLoggerCmd represents the test-logger command
var testLoggerCmd = &cobra.Command{
	Use:   "test-logger",
	Short: "Logger 기능 테스트",
	Long: `구조화된 로깅 출력을 확인합니다.

이 명령어는:
- JSON/Console 포맷 출력
- 컴포넌트/필드 로깅
- 에러 컨텍스트 로깅

Example:
  go run ./cmd/quant test-logger
  go run ./cmd/quant test-logger --env production`,
	RunE: runTestLogger,
}

func init() {
	rootCmd.AddCommand(testLoggerCmd)
}

func runTestLogger(cmd *cobra.Command, args []string) error {
	fmt.Println("=== buyStock Logger Test ===")

	for _, format := range []string{"json", "console"} {
		fmt.Printf("\n%s format\n", format)
		PrintSeparator()

		log := logger.New(&config.Config{Env: envOr("development"), LogLevel: "debug", LogFormat: format})

		log.WithComponent("detector").
			WithFields(map[string]interface{}{
				"symbol":    "^IXIC",
				"threshold": 0.10,
				"cycles":    42,
			}).
			Info("Cycle detection completed")

		log.WithComponent("simulator").
			WithField("skipped", "STRONG_BUY").
			Debug("Order exceeds available cash")

		log.WithComponent("yahoo").
			WithError(errors.New("429 Too Many Requests")).
			WithField("attempt", 2).
			Warn("Request throttled, retrying")
	}

	fmt.Println()
	PrintSuccess("All logger outputs emitted")
	return nil
}

func envOr(def string) string {
	if env != "" {
		return env
	}
	return def
}
