package price

import (
	"context"
	"fmt"
	"strings"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/shopspring/decimal"

	"twap-adapter/pkg/types"
)

// TokenLister lists 1Click tokens of one blockchain
type TokenLister interface {
	ChainTokens(ctx context.Context, blockchain string) ([]oneclick.TokenResponse, error)
}

// OneClickOracle prices tokens from the 1Click supported token list
type OneClickOracle struct {
	lister     TokenLister
	blockchain string
}

// NewOneClickOracle creates an oracle for the given 1Click blockchain name (e.g. "bsc", "arb")
func NewOneClickOracle(lister TokenLister, blockchain string) *OneClickOracle {
	return &OneClickOracle{
		lister:     lister,
		blockchain: blockchain,
	}
}

// Prices matches tokens by contract address. The native token has no contract
// address on 1Click and is matched by symbol instead.
func (o *OneClickOracle) Prices(ctx context.Context, tokens []types.TokenInfo) (Table, error) {
	remote, err := o.lister.ChainTokens(ctx, o.blockchain)
	if err != nil {
		return Table{}, fmt.Errorf("failed to fetch 1Click prices: %w", err)
	}

	// 1Click reports prices as float32
	byAddress := make(map[string]decimal.Decimal, len(remote))
	nativeBySymbol := make(map[string]decimal.Decimal)
	for _, r := range remote {
		p := decimal.NewFromFloat32(r.GetPrice())
		if addr := r.GetContractAddress(); addr != "" {
			byAddress[strings.ToLower(addr)] = p
			continue
		}
		nativeBySymbol[strings.ToUpper(r.GetSymbol())] = p
	}

	out := make(map[string]decimal.Decimal)
	for _, t := range tokens {
		var (
			p  decimal.Decimal
			ok bool
		)
		if t.IsNative {
			p, ok = nativeBySymbol[strings.ToUpper(t.Symbol)]
		} else {
			p, ok = byAddress[strings.ToLower(t.Address)]
		}
		if ok && p.IsPositive() {
			out[t.Address] = p
		}
	}

	return NewTable(out), nil
}
