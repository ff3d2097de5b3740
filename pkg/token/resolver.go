package token

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"twap-adapter/pkg/registry"
	"twap-adapter/pkg/types"
)

// Resolver turns dapp token collections into the canonical list, memoizing
// the last result
type Resolver struct {
	rules  Rules
	logger *zap.Logger

	mu       sync.Mutex
	input    *registry.DappTokens
	size     int
	resolved []types.TokenInfo
}

// NewResolver creates a resolver for one dapp's token rules
func NewResolver(rules Rules, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		rules:  rules,
		logger: logger,
	}
}

// ResolveTokenList returns the native token followed by every parseable dapp
// token, deduplicated by address, in input order. The result is recomputed
// only when the collection identity or size changes; callers must treat the
// returned slice as read-only.
func (r *Resolver) ResolveTokenList(tokens *registry.DappTokens) []types.TokenInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil && r.input == tokens && r.size == tokens.Len() {
		return r.resolved
	}

	r.resolved = r.resolve(tokens)
	r.input = tokens
	r.size = tokens.Len()
	return r.resolved
}

func (r *Resolver) resolve(tokens *registry.DappTokens) []types.TokenInfo {
	native := r.rules.Native()
	list := make([]types.TokenInfo, 0, tokens.Len()+1)
	list = append(list, native)

	seen := map[string]struct{}{
		strings.ToLower(native.Address): {},
	}

	skipped := 0
	for _, entry := range tokens.Entries() {
		t, err := ParseToken(r.rules, entry.Value)
		if err != nil {
			skipped++
			r.logger.Warn("skipping dapp token", zap.String("key", entry.Key), zap.Error(err))
			continue
		}

		key := strings.ToLower(t.Address)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		list = append(list, t)
	}

	r.logger.Debug("resolved token list",
		zap.Int("input", tokens.Len()),
		zap.Int("tokens", len(list)),
		zap.Int("skipped", skipped))

	return list
}

// FindToken looks a token up by address, ignoring case
func FindToken(list []types.TokenInfo, address string) (types.TokenInfo, bool) {
	address = strings.TrimSpace(address)
	if address == "" {
		return types.TokenInfo{}, false
	}
	for _, t := range list {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return types.TokenInfo{}, false
}
