package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Provider is the host wallet as seen by the adapter: an account, a chain id,
// and an optional connection handle that is never inspected here
type Provider struct {
	Account string
	ChainID int64
	Client  *ethclient.Client
}

// ChainIDReader reads the chain id of a connected node. *ethclient.Client satisfies it.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// New validates the account and builds a provider without a connection.
// An empty account means no wallet is connected.
func New(account string, chainID int64) (Provider, error) {
	if account == "" {
		return Provider{ChainID: chainID}, nil
	}
	if !common.IsHexAddress(account) {
		return Provider{}, fmt.Errorf("invalid account address: %s", account)
	}
	return Provider{
		Account: common.HexToAddress(account).Hex(),
		ChainID: chainID,
	}, nil
}

// Dial connects to an RPC endpoint and takes the chain id from the node
func Dial(ctx context.Context, rpcURL, account string) (Provider, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return Provider{}, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	chainID, err := ReadChainID(ctx, client)
	if err != nil {
		client.Close()
		return Provider{}, err
	}

	p, err := New(account, chainID)
	if err != nil {
		client.Close()
		return Provider{}, err
	}
	p.Client = client
	return p, nil
}

// ReadChainID asks the node for its chain id
func ReadChainID(ctx context.Context, reader ChainIDReader) (int64, error) {
	id, err := reader.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !id.IsInt64() {
		return 0, fmt.Errorf("chain id out of range: %s", id)
	}
	return id.Int64(), nil
}

// Connected reports whether an account is available
func (p Provider) Connected() bool {
	return p.Account != ""
}

// CheckChain returns an error when the wallet is on another chain than expected.
// A zero chain id means unknown and always passes.
func (p Provider) CheckChain(expected int64) error {
	if p.ChainID == 0 || p.ChainID == expected {
		return nil
	}
	return fmt.Errorf("wallet is on chain %d, expected %d", p.ChainID, expected)
}

// Close releases the connection handle, if any
func (p Provider) Close() {
	if p.Client != nil {
		p.Client.Close()
	}
}
