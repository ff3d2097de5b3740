package order

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"twap-adapter/pkg/types"
)

// field aliases accepted from indexers, first match wins
var (
	srcAmountKeys = []string{"srcTokenAmount", "srcAmount"}
	tradeSizeKeys = []string{"tradeSize", "srcBidAmount"}
	filledKeys    = []string{"srcFilledAmount", "filledAmount"}
	dstMinKeys    = []string{"dstMinAmount"}
	delayKeys     = []string{"delay", "bidDelay", "fillDelay"}
	timeKeys      = []string{"time", "createdAt"}
)

// ParseRawOrder validates an untyped order record into a RawOrder.
// Returns *types.MalformedOrderError naming the first bad field.
func ParseRawOrder(fields map[string]any) (types.RawOrder, error) {
	var raw types.RawOrder

	id, err := idField(fields["id"])
	if err != nil {
		return raw, &types.MalformedOrderError{Field: "id", Err: err}
	}
	raw.ID = id

	malformed := func(field string, err error) error {
		return &types.MalformedOrderError{ID: id, Field: field, Err: err}
	}

	if raw.SrcToken, err = addressField(fields["srcToken"]); err != nil {
		return raw, malformed("srcToken", err)
	}
	if raw.DstToken, err = addressField(fields["dstToken"]); err != nil {
		return raw, malformed("dstToken", err)
	}

	if raw.SrcTokenAmount, err = bigField(lookup(fields, srcAmountKeys)); err != nil {
		return raw, malformed("srcTokenAmount", err)
	}
	if raw.TradeSize, err = bigField(lookup(fields, tradeSizeKeys)); err != nil {
		return raw, malformed("tradeSize", err)
	}
	if raw.Deadline, err = intField(fields["deadline"]); err != nil {
		return raw, malformed("deadline", err)
	}

	if v := lookup(fields, filledKeys); v != nil {
		if raw.SrcFilledAmount, err = bigField(v); err != nil {
			return raw, malformed("srcFilledAmount", err)
		}
	} else {
		raw.SrcFilledAmount = new(big.Int)
	}
	if v := lookup(fields, dstMinKeys); v != nil {
		if raw.DstMinAmount, err = bigField(v); err != nil {
			return raw, malformed("dstMinAmount", err)
		}
	}
	if v := lookup(fields, delayKeys); v != nil {
		if raw.Delay, err = intField(v); err != nil {
			return raw, malformed("delay", err)
		}
	}
	if v := lookup(fields, timeKeys); v != nil {
		if raw.Time, err = intField(v); err != nil {
			return raw, malformed("time", err)
		}
	}

	raw.Canceled = canceledField(fields)
	return raw, nil
}

func lookup(fields map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func idField(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", fmt.Errorf("empty")
		}
		return strings.TrimSpace(id), nil
	case json.Number:
		return id.String(), nil
	case float64:
		if id != math.Trunc(id) {
			return "", fmt.Errorf("not an integer: %v", id)
		}
		return strconv.FormatFloat(id, 'f', 0, 64), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case nil:
		return "", fmt.Errorf("missing")
	}
	return "", fmt.Errorf("unsupported type %T", v)
}

func addressField(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return "", fmt.Errorf("missing")
		}
		return "", fmt.Errorf("unsupported type %T", v)
	}
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

func bigField(v any) (*big.Int, error) {
	var n *big.Int
	switch x := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing")
	case string:
		s := strings.TrimSpace(x)
		var ok bool
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			n, ok = new(big.Int).SetString(s[2:], 16)
		} else {
			n, ok = new(big.Int).SetString(s, 10)
		}
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
	case json.Number:
		var ok bool
		n, ok = new(big.Int).SetString(x.String(), 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", x)
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return nil, fmt.Errorf("invalid integer %v", x)
		}
		n, _ = new(big.Float).SetFloat64(x).Int(nil)
	case int:
		n = big.NewInt(int64(x))
	case int64:
		n = big.NewInt(x)
	case *big.Int:
		n = new(big.Int).Set(x)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}

	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", n)
	}
	return n, nil
}

func intField(v any) (int64, error) {
	n, err := bigField(v)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("value out of range %s", n)
	}
	return n.Int64(), nil
}

// canceledField accepts an explicit flag or a status string from the indexer
func canceledField(fields map[string]any) bool {
	if b, ok := fields["canceled"].(bool); ok {
		return b
	}
	if s, ok := fields["status"].(string); ok {
		return strings.EqualFold(s, string(types.OrderCanceled)) || strings.EqualFold(s, "cancelled")
	}
	return false
}
