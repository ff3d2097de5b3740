package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"twap-adapter/pkg/parser"
	"twap-adapter/pkg/token"
	"twap-adapter/pkg/types"
)

var (
	selectSrc    string
	selectDst    string
	selectPick   string
	selectPickTo string
	selectSwitch bool
)

var selectCmd = &cobra.Command{
	Use:   "select [<token> to <token>]",
	Short: "Resolve a source/destination token pair",
	Long: `Resolve the host dapp's selected tokens against the canonical list, then
optionally apply a user pick or a switch.

Tokens are given by address or symbol. Picking the token already selected on
the other side switches the pair.

Examples:
  twap-adapter select BNB to BUSD
  twap-adapter select --src BNB --dst BUSD
  twap-adapter select --src BNB --dst BUSD --pick BUSD --side src
  twap-adapter select --src BNB --dst BUSD --switch`,
	Run: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVar(&selectSrc, "src", "", "Source token (address or symbol)")
	selectCmd.Flags().StringVar(&selectDst, "dst", "", "Destination token (address or symbol)")
	selectCmd.Flags().StringVar(&selectPick, "pick", "", "Token picked by the user (address or symbol)")
	selectCmd.Flags().StringVar(&selectPickTo, "side", "src", "Side the pick applies to (src or dst)")
	selectCmd.Flags().BoolVar(&selectSwitch, "switch", false, "Switch source and destination")
}

func runSelect(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args) > 0 {
		pair, err := parser.ParsePair(strings.Join(args, " "))
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		selectSrc, selectDst = pair.Src, pair.Dst
	}

	side := strings.ToLower(selectPickTo)
	if side != "src" && side != "dst" {
		printError(fmt.Errorf("invalid side '%s', expected src or dst", selectPickTo))
		os.Exit(1)
	}

	a := setup(cmd)
	defer a.close()

	tokens := a.session.Tokens()
	sel := a.session.SelectAddresses(resolveAddress(tokens, selectSrc), resolveAddress(tokens, selectDst))

	if selectPick != "" {
		t, ok := lookupToken(tokens, selectPick)
		if !ok {
			printError(fmt.Errorf("%w: %s", types.ErrUnknownToken, selectPick))
			os.Exit(1)
		}

		// the session expects a raw dapp token, hand it the canonical fields
		raw := map[string]any{
			"symbol":   t.Symbol,
			"address":  t.Address,
			"decimals": int(t.Decimals),
			"logoURI":  t.LogoURL,
		}
		if a.session.Dapp().Rules.NestedKey != "" {
			raw = map[string]any{a.session.Dapp().Rules.NestedKey: raw}
		}

		var err error
		sel, err = a.session.SelectToken(side == "src", raw)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	if selectSwitch {
		sel = a.session.SwitchTokens()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(sel, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        TOKEN SELECTION")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  From:  %s\n", describeSide(sel.Src))
	fmt.Printf("  To:    %s\n", describeSide(sel.Dst))
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

// lookupToken finds a token by address, then by symbol
func lookupToken(tokens []types.TokenInfo, ref string) (types.TokenInfo, bool) {
	if t, ok := token.FindToken(tokens, ref); ok {
		return t, true
	}
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, ref) {
			return t, true
		}
	}
	return types.TokenInfo{}, false
}

func resolveAddress(tokens []types.TokenInfo, ref string) string {
	if ref == "" {
		return ""
	}
	if t, ok := lookupToken(tokens, ref); ok {
		return t.Address
	}
	return ref
}

func describeSide(t *types.TokenInfo) string {
	if t == nil {
		return color.HiBlackString("(none)")
	}
	return fmt.Sprintf("%s  %s", color.YellowString(t.Symbol), color.HiBlackString(t.Address))
}
