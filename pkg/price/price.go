package price

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"twap-adapter/pkg/types"
)

// Table holds USD unit prices keyed by token address.
// A missing entry means the price is unavailable, which is not an error.
type Table struct {
	prices map[string]decimal.Decimal
}

// NewTable builds a table from address keyed prices
func NewTable(prices map[string]decimal.Decimal) Table {
	t := Table{prices: make(map[string]decimal.Decimal, len(prices))}
	for addr, p := range prices {
		t.prices[strings.ToLower(addr)] = p
	}
	return t
}

// USD returns the unit price for a token address
func (t Table) USD(address string) (decimal.Decimal, bool) {
	if address == "" || t.prices == nil {
		return decimal.Zero, false
	}
	p, ok := t.prices[strings.ToLower(address)]
	return p, ok
}

// Len returns the number of known prices
func (t Table) Len() int {
	return len(t.prices)
}

// Oracle supplies USD prices for a set of tokens
type Oracle interface {
	Prices(ctx context.Context, tokens []types.TokenInfo) (Table, error)
}

// None is an oracle that never knows a price
type None struct{}

// Prices returns an empty table
func (None) Prices(ctx context.Context, tokens []types.TokenInfo) (Table, error) {
	return Table{}, nil
}

// StaticOracle serves prices from a fixed set keyed by address or symbol
type StaticOracle struct {
	byKey map[string]decimal.Decimal
}

// staticFile is the YAML layout of a static price file
type staticFile struct {
	Prices map[string]string `yaml:"prices"`
}

// NewStaticOracle creates an oracle from address or symbol keyed prices
func NewStaticOracle(prices map[string]decimal.Decimal) *StaticOracle {
	o := &StaticOracle{byKey: make(map[string]decimal.Decimal, len(prices))}
	for k, p := range prices {
		o.byKey[strings.ToLower(k)] = p
	}
	return o
}

// LoadStaticOracle reads a YAML price file:
//
//	prices:
//	  "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56": "1.00"
//	  BNB: "612.40"
func LoadStaticOracle(path string) (*StaticOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price file: %w", err)
	}

	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price file: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(file.Prices))
	for k, v := range file.Prices {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid price for %s: %w", k, err)
		}
		prices[k] = p
	}

	return NewStaticOracle(prices), nil
}

// Prices matches each token by address first, then by symbol
func (o *StaticOracle) Prices(ctx context.Context, tokens []types.TokenInfo) (Table, error) {
	out := make(map[string]decimal.Decimal)
	for _, t := range tokens {
		if p, ok := o.byKey[strings.ToLower(t.Address)]; ok {
			out[t.Address] = p
			continue
		}
		if p, ok := o.byKey[strings.ToLower(t.Symbol)]; ok {
			out[t.Address] = p
		}
	}
	return NewTable(out), nil
}
