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
	Use:   "salescast",
	Short: "Salescast - retail demand forecast serving",
	Long: `Salescast Unified CLI

아이템/매장 단위 수요 예측과 전국 7일 매출 예측 서비스.
오프라인 파이프라인이 아티팩트를 만들고, serve가 시작 시 한 번 읽어 서빙합니다.

Usage:
  go run ./cmd/salescast [command]

Examples:
  go run ./cmd/salescast serve
  go run ./cmd/salescast features build
  go run ./cmd/salescast predict item --item FOODS_1_001 --store CA_1 --date 2016-05-23
  go run ./cmd/salescast forecast national --date 01/01/2099 --xlsx national.xlsx
  go run ./cmd/salescast check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
