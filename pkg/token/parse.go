package token

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"twap-adapter/pkg/types"
)

// EtherAddress is the 0xEeee... placeholder many dapps use for the native asset
const EtherAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Rules describes how one dapp shapes its raw tokens
type Rules struct {
	// NativeToken is the chain's native asset. Its address is always forced to the sentinel.
	NativeToken types.TokenInfo

	// NativeMarkers are dapp specific address strings meaning "native", e.g. "BNB"
	NativeMarkers []string

	// NestedKey names an inner object carrying the token fields (Pangolin wraps them in "tokenInfo")
	NestedKey string

	// MissingNestedIsNative treats entries without the nested object as the native asset
	MissingNestedIsNative bool

	// LogoKey overrides the field holding the logo url. Defaults to "logoURI".
	LogoKey string

	// LogoURLTemplate builds a logo url when the entry has none.
	// "{address}" and "{symbol}" are substituted.
	LogoURLTemplate string
}

// Native returns the canonical native token. Every native entry resolves to this value.
func (r Rules) Native() types.TokenInfo {
	native := r.NativeToken
	native.Address = types.NativeAddress
	native.IsNative = true
	return native
}

// IsNativeAddress reports whether address denotes the native asset under these rules
func (r Rules) IsNativeAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return true
	}
	if strings.EqualFold(address, types.NativeAddress) || strings.EqualFold(address, EtherAddress) {
		return true
	}
	for _, marker := range r.NativeMarkers {
		if strings.EqualFold(address, marker) {
			return true
		}
	}
	return false
}

// ParseToken converts one raw dapp token into a TokenInfo.
// Returns *types.InvalidTokenError when the entry can't be used.
func ParseToken(rules Rules, raw any) (types.TokenInfo, error) {
	fields, ok := raw.(map[string]any)
	if !ok {
		return types.TokenInfo{}, &types.InvalidTokenError{Raw: raw, Reason: "not an object"}
	}

	if rules.NestedKey != "" {
		nested, ok := fields[rules.NestedKey].(map[string]any)
		if !ok {
			if rules.MissingNestedIsNative {
				return rules.Native(), nil
			}
			return types.TokenInfo{}, &types.InvalidTokenError{Raw: raw, Reason: "missing " + rules.NestedKey}
		}
		fields = nested
	}

	symbol := stringField(fields, "symbol")
	if symbol == "" {
		return types.TokenInfo{}, &types.InvalidTokenError{Raw: raw, Reason: "missing symbol"}
	}

	address := stringField(fields, "address")
	if rules.IsNativeAddress(address) {
		return rules.Native(), nil
	}
	if !common.IsHexAddress(address) {
		return types.TokenInfo{}, &types.InvalidTokenError{Raw: raw, Reason: fmt.Sprintf("invalid address %q", address)}
	}
	checksummed := common.HexToAddress(address).Hex()

	decimals, err := decimalsField(fields)
	if err != nil {
		return types.TokenInfo{}, &types.InvalidTokenError{Raw: raw, Reason: err.Error()}
	}

	return types.TokenInfo{
		Symbol:   symbol,
		Address:  checksummed,
		Decimals: decimals,
		LogoURL:  rules.logo(fields, checksummed, symbol),
	}, nil
}

func (r Rules) logo(fields map[string]any, address, symbol string) string {
	keys := []string{"logoURI", "logoUrl", "logoURL"}
	if r.LogoKey != "" {
		keys = append([]string{r.LogoKey}, keys...)
	}
	for _, k := range keys {
		if v := stringField(fields, k); v != "" {
			return v
		}
	}

	if r.LogoURLTemplate == "" {
		return ""
	}
	url := strings.ReplaceAll(r.LogoURLTemplate, "{address}", address)
	return strings.ReplaceAll(url, "{symbol}", symbol)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func decimalsField(fields map[string]any) (uint8, error) {
	v, ok := fields["decimals"]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing decimals")
	}

	var n float64
	switch d := v.(type) {
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid decimals %q", d)
		}
		n = f
	case float64:
		n = d
	case int:
		n = float64(d)
	case int64:
		n = float64(d)
	case uint8:
		return d, nil
	case string:
		f, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimals %q", d)
		}
		n = f
	default:
		return 0, fmt.Errorf("invalid decimals %v", v)
	}

	if n < 0 || n > math.MaxUint8 || n != math.Trunc(n) {
		return 0, fmt.Errorf("decimals out of range: %v", n)
	}
	return uint8(n), nil
}
