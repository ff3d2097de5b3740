package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"twap-adapter/config"
	"twap-adapter/pkg/util"
)

var rootCmd = &cobra.Command{
	Use:   "twap-adapter",
	Short: "Token and order state for TWAP widgets embedded in host dapps",
	Long: `twap-adapter resolves a host dapp's token list into the canonical list
used by the TWAP widgets and turns raw on-chain orders into display-ready
order state (status, progress, formatted amounts and USD values).

Supported dapps: pancake, pangolin, spiritswap, chronos.

Examples:
  twap-adapter list-tokens
  twap-adapter find-token 0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56
  twap-adapter select --src BNB --dst 0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56
  twap-adapter orders --status Open
  twap-adapter orders --watch`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// newLogger builds the command logger. --verbose lowers the level to debug.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}

	if cfg.LogFile != "" {
		return util.NewLoggerWithFile(level, cfg.LogFile)
	}
	return util.NewLogger(level)
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
