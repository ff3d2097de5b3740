package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"twap-adapter/pkg/indexer"
	"twap-adapter/pkg/order"
	"twap-adapter/pkg/price"
	"twap-adapter/pkg/registry"
	"twap-adapter/pkg/token"
	"twap-adapter/pkg/types"
	"twap-adapter/pkg/util"
	"twap-adapter/pkg/wallet"
)

// Session is the explicit state one embedded TWAP widget works against:
// wallet, canonical tokens, prices and the current token selection.
// Every change of token list or account starts a new generation; results
// computed for an older generation are discarded.
type Session struct {
	dapp      Dapp
	resolver  *token.Resolver
	oracle    price.Oracle
	logger    *zap.Logger
	precision int32

	mu         sync.Mutex
	generation uint64
	provider   wallet.Provider
	tokens     []types.TokenInfo
	prices     price.Table
	selection  token.Selection
}

// NewSession creates a session for one dapp. A nil oracle means no prices.
func NewSession(dapp Dapp, provider wallet.Provider, oracle price.Oracle, logger *zap.Logger) *Session {
	if oracle == nil {
		oracle = price.None{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("dapp", dapp.Name))

	return &Session{
		dapp:      dapp,
		resolver:  token.NewResolver(dapp.Rules, logger),
		oracle:    oracle,
		logger:    logger,
		precision: order.DefaultAmountPrecision,
		provider:  provider,
		tokens:    []types.TokenInfo{dapp.Rules.Native()},
	}
}

// SetAmountPrecision sets the fraction digits of derived amount strings
func (s *Session) SetAmountPrecision(precision int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.precision = precision
}

// Dapp returns the session's dapp configuration
func (s *Session) Dapp() Dapp {
	return s.dapp
}

// Provider returns the current wallet
func (s *Session) Provider() wallet.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// SetProvider replaces the wallet. A different account or chain supersedes
// any in-flight token load.
func (s *Session) SetProvider(p wallet.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !types.EqualAddress(p.Account, s.provider.Account) || p.ChainID != s.provider.ChainID {
		s.generation++
	}
	s.provider = p
}

// LoadTokens fetches the dapp token list and prices, then resolves the
// canonical list. Returns types.ErrStale when the token list or account
// changed while the load was in flight.
func (s *Session) LoadTokens(ctx context.Context, src registry.Source) ([]types.TokenInfo, error) {
	gen := s.begin()
	loadID := uuid.New().String()

	raw, err := src.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dapp tokens: %w", err)
	}

	list := s.resolver.ResolveTokenList(raw)

	prices, err := s.oracle.Prices(ctx, list)
	if err != nil {
		s.logger.Warn("prices unavailable", zap.String("load", loadID), zap.Error(err))
		prices = price.Table{}
	}

	if !s.commit(gen, list, prices) {
		s.logger.Debug("discarding stale token load", zap.String("load", loadID))
		return nil, types.ErrStale
	}

	s.logger.Info("token list loaded",
		zap.String("load", loadID),
		zap.Int("tokens", len(list)),
		zap.Int("prices", prices.Len()))
	return list, nil
}

// SetTokens resolves an already fetched dapp token collection, keeping the
// current prices. Returns types.ErrStale when a newer load or account change
// superseded it.
func (s *Session) SetTokens(raw *registry.DappTokens) ([]types.TokenInfo, error) {
	gen := s.begin()
	list := s.resolver.ResolveTokenList(raw)

	s.mu.Lock()
	prices := s.prices
	s.mu.Unlock()

	if !s.commit(gen, list, prices) {
		return nil, types.ErrStale
	}
	return list, nil
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Session) commit(gen uint64, list []types.TokenInfo, prices price.Table) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	s.tokens = list
	s.prices = prices

	// keep the selection only where it still resolves
	var srcAddr, dstAddr string
	if s.selection.Src != nil {
		srcAddr = s.selection.Src.Address
	}
	if s.selection.Dst != nil {
		dstAddr = s.selection.Dst.Address
	}
	s.selection = token.SelectionFromAddresses(list, srcAddr, dstAddr)
	return true
}

// Tokens returns the canonical token list. Treat it as read-only.
func (s *Session) Tokens() []types.TokenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// Prices returns the current price table
func (s *Session) Prices() price.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices
}

// Selection returns the current token pair
func (s *Session) Selection() token.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SelectToken applies a raw dapp token picked by the user to one side
func (s *Session) SelectToken(isSrc bool, raw any) (token.Selection, error) {
	parsed, err := token.ParseToken(s.dapp.Rules, raw)
	if err != nil {
		return s.Selection(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if canonical, ok := token.FindToken(s.tokens, parsed.Address); ok {
		parsed = canonical
	}
	s.selection = s.selection.Select(isSrc, parsed)
	return s.selection, nil
}

// SelectAddresses sets the pair from host dapp addresses, e.g. from a url
func (s *Session) SelectAddresses(srcAddress, dstAddress string) token.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = token.SelectionFromAddresses(s.tokens, srcAddress, dstAddress)
	return s.selection
}

// SwitchTokens swaps the selected pair
func (s *Session) SwitchTokens() token.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection.Switch()
	return s.selection
}

// Reconciler returns a reconciler bound to the current tokens and prices
func (s *Session) Reconciler() *order.Reconciler {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := order.NewReconciler(s.tokens, s.prices, s.logger)
	r.SetAmountPrecision(s.precision)
	return r
}

// Orders derives display orders from raw indexer records
func (s *Session) Orders(records []any, now time.Time) []types.Order {
	return s.Reconciler().ReconcileRecords(records, now)
}

// Watcher builds an order watcher that fetches the connected account's records
// from src on every cycle. A cycle that finishes after the account or chain
// changed returns types.ErrStale.
func (s *Session) Watcher(src indexer.Source, clock util.Clock) *order.Watcher {
	cycle := func(ctx context.Context, now time.Time) ([]types.Order, error) {
		provider := s.Provider()
		records, err := src.Orders(ctx, provider.Account)
		if err != nil {
			return nil, err
		}
		orders := s.Orders(records, now)

		if !s.sameWallet(provider) {
			s.logger.Debug("discarding orders of previous account", zap.String("account", provider.Account))
			return nil, types.ErrStale
		}
		return orders, nil
	}
	return order.NewWatcher(cycle, clock, s.logger)
}

func (s *Session) sameWallet(p wallet.Provider) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.EqualAddress(p.Account, s.provider.Account) && p.ChainID == s.provider.ChainID
}
