package price

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"twap-adapter/pkg/types"
)

// Chainlink aggregator functions used for USD feeds
const aggregatorABI = `[
{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"latestRoundData","outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},{"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},{"name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}
]`

// ContractCaller performs read-only contract calls. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainlinkOracle reads USD prices from on-chain aggregator feeds
type ChainlinkOracle struct {
	caller ContractCaller
	feeds  map[string]common.Address
	abi    abi.ABI
	logger *zap.Logger
}

// NewChainlinkOracle creates an oracle from token address (or symbol) to feed address
func NewChainlinkOracle(caller ContractCaller, feeds map[string]string, logger *zap.Logger) (*ChainlinkOracle, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &ChainlinkOracle{
		caller: caller,
		feeds:  make(map[string]common.Address, len(feeds)),
		abi:    parsed,
		logger: logger,
	}
	for key, feed := range feeds {
		if !common.IsHexAddress(feed) {
			return nil, fmt.Errorf("invalid feed address for %s: %s", key, feed)
		}
		o.feeds[strings.ToLower(key)] = common.HexToAddress(feed)
	}
	return o, nil
}

// Prices reads every configured feed. A failing feed leaves its token unpriced.
func (o *ChainlinkOracle) Prices(ctx context.Context, tokens []types.TokenInfo) (Table, error) {
	out := make(map[string]decimal.Decimal)
	for _, t := range tokens {
		feed, ok := o.feeds[strings.ToLower(t.Address)]
		if !ok {
			feed, ok = o.feeds[strings.ToLower(t.Symbol)]
		}
		if !ok {
			continue
		}

		p, err := o.readFeed(ctx, feed)
		if err != nil {
			o.logger.Warn("price feed unavailable",
				zap.String("token", t.Symbol),
				zap.String("feed", feed.Hex()),
				zap.Error(err))
			continue
		}
		out[t.Address] = p
	}
	return NewTable(out), nil
}

func (o *ChainlinkOracle) readFeed(ctx context.Context, feed common.Address) (decimal.Decimal, error) {
	decOut, err := o.call(ctx, feed, "decimals")
	if err != nil {
		return decimal.Zero, err
	}
	decimals, ok := decOut[0].(uint8)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected decimals type %T", decOut[0])
	}

	roundOut, err := o.call(ctx, feed, "latestRoundData")
	if err != nil {
		return decimal.Zero, err
	}
	answer, ok := roundOut[1].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected answer type %T", roundOut[1])
	}
	if answer.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive answer %s", answer)
	}

	return decimal.NewFromBigInt(answer, -int32(decimals)), nil
}

func (o *ChainlinkOracle) call(ctx context.Context, feed common.Address, method string) ([]interface{}, error) {
	data, err := o.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := o.caller.CallContract(ctx, ethereum.CallMsg{To: &feed, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := o.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}
