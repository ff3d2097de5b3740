package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"twap-adapter/pkg/price"
	"twap-adapter/pkg/token"
	"twap-adapter/pkg/types"
)

var (
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the canonical token list of the configured dapp",
	Long: `List the tokens the TWAP widgets offer for the configured dapp.

The native token is always first. Entries the dapp lists twice, or that
can't be parsed, are dropped.

Examples:
  twap-adapter list-tokens
  twap-adapter list-tokens --symbol USD
  twap-adapter list-tokens --json`,
	Run: runListTokens,
}

var findTokenCmd = &cobra.Command{
	Use:   "find-token <address>",
	Short: "Look up a token by address",
	Long: `Look up a token of the canonical list by address (case-insensitive).

Examples:
  twap-adapter find-token 0xe9e7cea3dedca5984780bafc599bd69add087d56
  twap-adapter find-token 0x0000000000000000000000000000000000000000`,
	Args: cobra.ExactArgs(1),
	Run:  runFindToken,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(findTokenCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := setup(cmd)
	defer a.close()

	tokens := a.session.Tokens()

	// Apply filters
	filtered := tokens
	if filterSymbol != "" {
		var temp []types.TokenInfo
		for _, t := range filtered {
			if strings.Contains(strings.ToUpper(t.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, t)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(a.session.Dapp().Name, filtered, a.session.Prices())
	}
}

func runFindToken(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a := setup(cmd)
	defer a.close()

	t, ok := token.FindToken(a.session.Tokens(), args[0])
	if !ok {
		printError(fmt.Errorf("%w: %s", types.ErrUnknownToken, args[0]))
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(t, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          TOKEN")
	fmt.Println(strings.Repeat("=", 70))
	displayToken(t, a.session.Prices())
	fmt.Println(strings.Repeat("=", 70) + "\n")
}

func displayTokens(dappName string, tokens []types.TokenInfo, prices price.Table) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            %s TOKENS", strings.ToUpper(dappName))
	fmt.Println(strings.Repeat("=", 90))

	for _, t := range tokens {
		symbol := t.Symbol
		if t.IsNative {
			symbol += " *"
		}

		usd := ""
		if p, ok := prices.USD(t.Address); ok {
			usd = "$" + p.StringFixed(4)
		}

		fmt.Printf("  %-10s  %2d decimals  %s  %s\n",
			color.YellowString(symbol),
			t.Decimals,
			color.HiBlackString(t.Address),
			color.CyanString(usd))
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens (* native)\n\n", len(tokens))
}

func displayToken(t types.TokenInfo, prices price.Table) {
	fmt.Printf("\n  Symbol:    %s\n", color.YellowString(t.Symbol))
	fmt.Printf("  Address:   %s\n", color.CyanString(t.Address))
	fmt.Printf("  Decimals:  %d\n", t.Decimals)
	fmt.Printf("  Native:    %t\n", t.IsNative)
	if t.LogoURL != "" {
		fmt.Printf("  Logo:      %s\n", color.HiBlackString(t.LogoURL))
	}
	if p, ok := prices.USD(t.Address); ok {
		fmt.Printf("  USD:       $%s\n", p.StringFixed(4))
	}
	fmt.Println()
}
