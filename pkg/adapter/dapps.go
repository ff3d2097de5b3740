package adapter

import (
	"fmt"
	"sort"
	"strings"

	"twap-adapter/pkg/token"
	"twap-adapter/pkg/types"
)

// Dapp is everything that differs between host dapps embedding the TWAP widgets
type Dapp struct {
	Name    string
	ChainID int64

	// OneClickChain is the 1Click blockchain name used for USD prices, empty if unsupported
	OneClickChain string

	Rules token.Rules
}

var dapps = map[string]Dapp{
	"pancake": {
		Name:          "PancakeSwap",
		ChainID:       56,
		OneClickChain: "bsc",
		Rules: token.Rules{
			NativeToken: types.TokenInfo{
				Symbol:   "BNB",
				Decimals: 18,
				LogoURL:  "https://tokens.pancakeswap.finance/images/symbol/bnb.png",
			},
			NativeMarkers: []string{"BNB"},
		},
	},
	"pangolin": {
		Name:          "Pangolin",
		ChainID:       43114,
		OneClickChain: "avax",
		Rules: token.Rules{
			NativeToken: types.TokenInfo{
				Symbol:   "AVAX",
				Decimals: 18,
				LogoURL:  "https://raw.githubusercontent.com/pangolindex/sdk/master/src/images/chains/avax.png",
			},
			NestedKey:             "tokenInfo",
			MissingNestedIsNative: true,
		},
	},
	"spiritswap": {
		Name:    "SpiritSwap",
		ChainID: 250,
		Rules: token.Rules{
			NativeToken: types.TokenInfo{Symbol: "FTM", Decimals: 18},
		},
	},
	"chronos": {
		Name:          "Chronos",
		ChainID:       42161,
		OneClickChain: "arb",
		Rules: token.Rules{
			NativeToken: types.TokenInfo{
				Symbol:   "ETH",
				Decimals: 18,
				LogoURL:  "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/arbitrum/info/logo.png",
			},
			// chronos lists carry no logos
			LogoURLTemplate: "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/arbitrum/assets/{address}/logo.png",
		},
	},
}

// Lookup returns the built-in configuration for a dapp key such as "pancake"
func Lookup(name string) (Dapp, error) {
	d, ok := dapps[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dapp{}, fmt.Errorf("unknown dapp '%s', supported: %s", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the built-in dapp keys
func Names() []string {
	names := make([]string, 0, len(dapps))
	for k := range dapps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
