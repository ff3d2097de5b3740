package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twap-adapter/pkg/price"
	"twap-adapter/pkg/registry"
	"twap-adapter/pkg/types"
	"twap-adapter/pkg/util"
	"twap-adapter/pkg/wallet"
)

const (
	busd    = "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"
	wbnb    = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
	account = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"
)

func pancakeTokens() *registry.DappTokens {
	return registry.FromList([]any{
		map[string]any{"symbol": "BNB", "address": "BNB", "decimals": 18},
		map[string]any{"symbol": "BUSD", "address": busd, "decimals": 18},
		map[string]any{"symbol": "WBNB", "address": wbnb, "decimals": 18},
	})
}

type staticSource struct {
	tokens *registry.DappTokens
	err    error
}

func (s staticSource) Tokens(ctx context.Context) (*registry.DappTokens, error) {
	return s.tokens, s.err
}

// blockingSource waits for release before returning
type blockingSource struct {
	tokens  *registry.DappTokens
	entered chan struct{}
	release chan struct{}
}

func (s blockingSource) Tokens(ctx context.Context) (*registry.DappTokens, error) {
	close(s.entered)
	<-s.release
	return s.tokens, nil
}

// blockingRecords waits for release before returning its records
type blockingRecords struct {
	records []any
	entered chan struct{}
	release chan struct{}
}

func (s blockingRecords) Orders(ctx context.Context, acct string) ([]any, error) {
	close(s.entered)
	<-s.release
	return s.records, nil
}

type failingOracle struct{}

func (failingOracle) Prices(ctx context.Context, tokens []types.TokenInfo) (price.Table, error) {
	return price.Table{}, errors.New("price service down")
}

type recordSource struct {
	records []any
	account string
}

func (s *recordSource) Orders(ctx context.Context, acct string) ([]any, error) {
	s.account = acct
	return s.records, nil
}

func newPancakeSession(t *testing.T, oracle price.Oracle) *Session {
	t.Helper()
	dapp, err := Lookup("pancake")
	require.NoError(t, err)
	provider, err := wallet.New(account, dapp.ChainID)
	require.NoError(t, err)
	return NewSession(dapp, provider, oracle, nil)
}

func TestLookup(t *testing.T) {
	d, err := Lookup(" Pancake ")
	require.NoError(t, err)
	assert.Equal(t, int64(56), d.ChainID)

	_, err = Lookup("uniswap")
	assert.Error(t, err)

	assert.Equal(t, []string{"chronos", "pancake", "pangolin", "spiritswap"}, Names())
}

func TestNewSession_StartsWithNative(t *testing.T) {
	s := newPancakeSession(t, nil)

	tokens := s.Tokens()
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].IsNative)
	assert.Equal(t, "BNB", tokens[0].Symbol)
}

func TestSession_LoadTokens_PancakeMarker(t *testing.T) {
	oracle := price.NewStaticOracle(map[string]decimal.Decimal{
		busd: decimal.NewFromInt(1),
	})
	s := newPancakeSession(t, oracle)

	list, err := s.LoadTokens(context.Background(), staticSource{tokens: pancakeTokens()})
	require.NoError(t, err)

	require.Len(t, list, 3)
	assert.Equal(t, types.NativeAddress, list[0].Address)
	assert.Equal(t, "BUSD", list[1].Symbol)
	assert.Equal(t, "WBNB", list[2].Symbol)

	usd, ok := s.Prices().USD(busd)
	require.True(t, ok)
	assert.True(t, usd.Equal(decimal.NewFromInt(1)))
}

func TestSession_LoadTokens_PangolinNested(t *testing.T) {
	dapp, err := Lookup("pangolin")
	require.NoError(t, err)
	s := NewSession(dapp, wallet.Provider{}, nil, nil)

	raw := registry.FromList([]any{
		map[string]any{"chainId": 43114},
		map[string]any{"tokenInfo": map[string]any{
			"symbol": "USDC", "address": "0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e", "decimals": 6,
		}},
	})

	list, err := s.LoadTokens(context.Background(), staticSource{tokens: raw})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AVAX", list[0].Symbol)
	assert.Equal(t, "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", list[1].Address)
	assert.Equal(t, uint8(6), list[1].Decimals)
}

func TestSession_LoadTokens_ChronosLogoTemplate(t *testing.T) {
	dapp, err := Lookup("chronos")
	require.NoError(t, err)
	s := NewSession(dapp, wallet.Provider{}, nil, nil)

	const usdc = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	raw := registry.FromList([]any{
		map[string]any{"symbol": "USDC", "address": usdc, "decimals": 6},
		map[string]any{"symbol": "CHR", "address": "0x15b2fb8f08E4Ac1Ce019EADAe02eE92AeDF06851", "decimals": 18,
			"logoURI": "https://chronos.exchange/chr.png"},
	})

	list, err := s.LoadTokens(context.Background(), staticSource{tokens: raw})
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.NotEmpty(t, list[0].LogoURL)
	assert.Equal(t, "https://raw.githubusercontent.com/trustwallet/assets/master/blockchains/arbitrum/assets/"+common.HexToAddress(usdc).Hex()+"/logo.png", list[1].LogoURL)
	assert.Equal(t, "https://chronos.exchange/chr.png", list[2].LogoURL, "listed logos win over the template")
}

func TestSession_LoadTokens_Errors(t *testing.T) {
	s := newPancakeSession(t, failingOracle{})

	_, err := s.LoadTokens(context.Background(), staticSource{err: errors.New("not found")})
	assert.Error(t, err)

	list, err := s.LoadTokens(context.Background(), staticSource{tokens: pancakeTokens()})
	require.NoError(t, err, "price failures leave prices empty")
	assert.Len(t, list, 3)
	assert.Equal(t, 0, s.Prices().Len())
}

func TestSession_LoadTokens_StaleAfterAccountChange(t *testing.T) {
	s := newPancakeSession(t, nil)

	src := blockingSource{
		tokens:  pancakeTokens(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.LoadTokens(context.Background(), src)
		done <- err
	}()

	<-src.entered
	other, err := wallet.New(wbnb, 56)
	require.NoError(t, err)
	s.SetProvider(other)
	close(src.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, types.ErrStale)
	case <-time.After(5 * time.Second):
		t.Fatal("load did not finish")
	}
	assert.Len(t, s.Tokens(), 1, "stale load must not replace the token list")
}

func TestSession_Watcher_StaleAfterAccountChange(t *testing.T) {
	s := newPancakeSession(t, nil)
	_, err := s.SetTokens(pancakeTokens())
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	src := blockingRecords{
		records: []any{map[string]any{
			"id": "1", "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": "100", "srcFilledAmount": "0", "tradeSize": "10",
			"deadline": now.Add(time.Hour).Unix(),
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := s.Watcher(src, util.FixedClock(now))

	done := make(chan error, 1)
	go func() {
		_, err := w.Refresh(context.Background())
		done <- err
	}()

	<-src.entered
	other, err := wallet.New(wbnb, 56)
	require.NoError(t, err)
	s.SetProvider(other)
	close(src.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, types.ErrStale)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not finish")
	}
	assert.Empty(t, w.Latest().Orders, "orders of the previous account must not be published")
}

func TestSession_Watcher_TokenReloadKeepsCycle(t *testing.T) {
	s := newPancakeSession(t, nil)
	_, err := s.SetTokens(pancakeTokens())
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	src := blockingRecords{
		records: []any{map[string]any{
			"id": "1", "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": "100", "srcFilledAmount": "0", "tradeSize": "10",
			"deadline": now.Add(time.Hour).Unix(),
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	w := s.Watcher(src, util.FixedClock(now))

	done := make(chan error, 1)
	go func() {
		_, err := w.Refresh(context.Background())
		done <- err
	}()

	<-src.entered
	_, err = s.SetTokens(pancakeTokens())
	require.NoError(t, err)
	close(src.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not finish")
	}
	require.Len(t, w.Latest().Orders, 1)
	assert.Equal(t, types.OrderOpen, w.Latest().Orders[0].Status)
}

func TestSession_SetProvider_SameAccountKeepsGeneration(t *testing.T) {
	s := newPancakeSession(t, nil)
	before := s.generation

	same, err := wallet.New(account, 56)
	require.NoError(t, err)
	s.SetProvider(same)
	assert.Equal(t, before, s.generation)
}

func TestSession_Selection(t *testing.T) {
	s := newPancakeSession(t, nil)
	_, err := s.SetTokens(pancakeTokens())
	require.NoError(t, err)

	sel := s.SelectAddresses("bnb", busd)
	assert.Nil(t, sel.Src, "host markers are not canonical addresses")
	require.NotNil(t, sel.Dst)

	sel = s.SelectAddresses(types.NativeAddress, busd)
	require.NotNil(t, sel.Src)
	assert.Equal(t, "BNB", sel.Src.Symbol)

	// picking the destination token as source switches the pair
	sel, err = s.SelectToken(true, map[string]any{"symbol": "BUSD", "address": busd, "decimals": 18})
	require.NoError(t, err)
	assert.Equal(t, "BUSD", sel.Src.Symbol)
	assert.Equal(t, "BNB", sel.Dst.Symbol)

	sel, err = s.SelectToken(false, map[string]any{"symbol": "WBNB", "address": wbnb, "decimals": 18})
	require.NoError(t, err)
	assert.Equal(t, "WBNB", sel.Dst.Symbol)

	sel = s.SwitchTokens()
	assert.Equal(t, "WBNB", sel.Src.Symbol)
	assert.Equal(t, "BUSD", sel.Dst.Symbol)

	_, err = s.SelectToken(true, "garbage")
	var invalid *types.InvalidTokenError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "WBNB", s.Selection().Src.Symbol)
}

func TestSession_SetTokensKeepsResolvableSelection(t *testing.T) {
	s := newPancakeSession(t, nil)
	_, err := s.SetTokens(pancakeTokens())
	require.NoError(t, err)
	s.SelectAddresses(busd, wbnb)

	list, err := s.SetTokens(registry.FromList([]any{
		map[string]any{"symbol": "BUSD", "address": busd, "decimals": 18},
	}))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	sel := s.Selection()
	require.NotNil(t, sel.Src)
	assert.Equal(t, "BUSD", sel.Src.Symbol)
	assert.Nil(t, sel.Dst)
}

func TestSession_Watcher(t *testing.T) {
	s := newPancakeSession(t, nil)
	_, err := s.SetTokens(pancakeTokens())
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	src := &recordSource{records: []any{
		map[string]any{
			"id": "1", "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": "100", "srcFilledAmount": "0", "tradeSize": "10",
			"deadline": now.Add(-time.Minute).Unix(),
		},
		map[string]any{"id": "2", "srcToken": "not-an-address"},
	}}

	w := s.Watcher(src, util.FixedClock(now))
	snap, err := w.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, account, src.account)
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, types.OrderExpired, snap.Orders[0].Status)
	assert.Equal(t, "WBNB", snap.Orders[0].SrcTokenInfo.Symbol)
}
