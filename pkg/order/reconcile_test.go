package order

import (
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"twap-adapter/pkg/price"
	"twap-adapter/pkg/types"
)

const (
	busd = "0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56"
	wbnb = "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
	cake = "0x0E09FaBB73Bd3Ade0a17ECC321fD13a19e81cE82"
)

var (
	now    = time.Unix(1_700_000_000, 0)
	past   = now.Add(-time.Hour).Unix()
	future = now.Add(time.Hour).Unix()

	tokenList = []types.TokenInfo{
		{Symbol: "BNB", Address: types.NativeAddress, Decimals: 18, IsNative: true},
		{Symbol: "BUSD", Address: busd, Decimals: 18},
		{Symbol: "WBNB", Address: wbnb, Decimals: 18},
	}
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func rawOrder(id string, amount, filled int64, deadline int64) types.RawOrder {
	return types.RawOrder{
		ID:              id,
		SrcToken:        wbnb,
		DstToken:        busd,
		SrcTokenAmount:  big.NewInt(amount),
		SrcFilledAmount: big.NewInt(filled),
		TradeSize:       big.NewInt(10),
		Deadline:        deadline,
		Delay:           120,
		Time:            now.Add(-2 * time.Hour).Unix(),
	}
}

func TestReconcile_Status(t *testing.T) {
	tests := []struct {
		name     string
		raw      types.RawOrder
		status   types.OrderStatus
		progress float64
	}{
		{name: "filled beats expired", raw: rawOrder("1", 100, 100, past), status: types.OrderFilled, progress: 1},
		{name: "unfilled past deadline", raw: rawOrder("2", 100, 0, past), status: types.OrderExpired, progress: 0},
		{name: "partially filled open", raw: rawOrder("3", 100, 25, future), status: types.OrderOpen, progress: 0.25},
		{name: "deadline equal to now is expired", raw: rawOrder("4", 100, 0, now.Unix()), status: types.OrderExpired, progress: 0},
		{name: "overfilled is clamped", raw: rawOrder("5", 100, 150, future), status: types.OrderFilled, progress: 1},
		{name: "zero amount has zero progress", raw: rawOrder("6", 0, 0, future), status: types.OrderFilled, progress: 0},
	}

	r := NewReconciler(tokenList, price.Table{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := r.Reconcile(tt.raw, now)
			require.NoError(t, err)
			assert.Equal(t, tt.status, o.Status)
			assert.InDelta(t, tt.progress, o.Progress, 1e-9)
			assert.GreaterOrEqual(t, o.Progress, 0.0)
			assert.LessOrEqual(t, o.Progress, 1.0)
			assert.GreaterOrEqual(t, o.SrcRemainingAmount.Sign(), 0)
		})
	}
}

func TestReconcile_CanceledBeatsEverything(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	raw := rawOrder("1", 100, 100, past)
	raw.Canceled = true
	o, err := r.Reconcile(raw, now)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCanceled, o.Status)

	raw = rawOrder("2", 100, 0, future)
	raw.Canceled = true
	o, err = r.Reconcile(raw, now)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCanceled, o.Status)
}

func TestReconcile_FilledScenario(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	o, err := r.Reconcile(rawOrder("1", 100, 100, past), now)
	require.NoError(t, err)
	assert.Equal(t, types.OrderFilled, o.Status)
	assert.Equal(t, 1.0, o.Progress)
	assert.Equal(t, 0, o.SrcRemainingAmount.Sign())
}

func TestReconcile_RemainingAndNilFilled(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	raw := rawOrder("1", 100, 0, future)
	raw.SrcFilledAmount = nil
	o, err := r.Reconcile(raw, now)
	require.NoError(t, err)
	assert.Equal(t, "100", o.SrcRemainingAmount.String())
	assert.Equal(t, types.OrderOpen, o.Status)
}

func TestReconcile_MarketOrder(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	for _, dstMin := range []*big.Int{nil, big.NewInt(0), big.NewInt(1)} {
		raw := rawOrder("1", 100, 0, future)
		raw.DstMinAmount = dstMin
		o, err := r.Reconcile(raw, now)
		require.NoError(t, err)
		assert.True(t, o.IsMarketOrder)
		assert.Nil(t, o.DstAmount)
		assert.Equal(t, "", o.DstTokenAmountUi)
		assert.Equal(t, "", o.DstUsdValueUi)
	}
}

func TestReconcile_LimitOrderAndFormatting(t *testing.T) {
	prices := price.NewTable(map[string]decimal.Decimal{
		wbnb: decimal.RequireFromString("612.5"),
		busd: decimal.NewFromInt(1),
	})
	r := NewReconciler(tokenList, prices, nil)

	raw := types.RawOrder{
		ID:              "7",
		SrcToken:        strings.ToLower(wbnb),
		DstToken:        strings.ToLower(busd),
		SrcTokenAmount:  units(4),
		SrcFilledAmount: units(1),
		TradeSize:       units(1),
		DstMinAmount:    units(600),
		Deadline:        future,
		Delay:           93784,
		Time:            now.Unix(),
	}

	o, err := r.Reconcile(raw, now)
	require.NoError(t, err)

	assert.False(t, o.IsMarketOrder)
	assert.Equal(t, "WBNB", o.SrcTokenInfo.Symbol)
	assert.Equal(t, "BUSD", o.DstTokenInfo.Symbol)
	assert.Equal(t, "600.000000", o.DstLimitPriceUi)
	assert.Equal(t, units(2400).String(), o.DstAmount.String())

	assert.Equal(t, "4.000000", o.SrcTokenAmountUi)
	assert.Equal(t, "2400.000000", o.DstTokenAmountUi)
	assert.Equal(t, "1.000000", o.TradeSizeAmountUi)
	assert.Equal(t, "1.000000", o.SrcFilledAmountUi)
	assert.Equal(t, "3.000000", o.SrcRemainingAmountUi)

	assert.Equal(t, "2450.00", o.SrcUsdValueUi)
	assert.Equal(t, "2400.00", o.DstUsdValueUi)
	assert.Equal(t, "612.50", o.TradeSizeUsdValueUi)
	assert.Equal(t, "612.50", o.SrcFilledUsdValueUi)
	assert.Equal(t, "1837.50", o.SrcRemainingUsdValueUi)

	assert.Equal(t, "2023-11-14 22:13", o.CreatedAtUi)
	assert.Equal(t, "2023-11-14 23:13", o.DeadlineUi)
	assert.Equal(t, "1d 2h 3m 4s", o.TradeIntervalUi)
}

func TestReconcile_PriceUnavailable(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	o, err := r.Reconcile(rawOrder("1", 100, 0, future), now)
	require.NoError(t, err)
	assert.Equal(t, "", o.SrcUsdValueUi)
	assert.Equal(t, "", o.TradeSizeUsdValueUi)
	assert.Equal(t, "", o.SrcFilledUsdValueUi)
	assert.Equal(t, "", o.SrcRemainingUsdValueUi)
}

func TestReconcile_Precision(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)
	r.SetAmountPrecision(2)

	raw := rawOrder("1", 0, 0, future)
	raw.SrcTokenAmount = units(3)
	o, err := r.Reconcile(raw, now)
	require.NoError(t, err)
	assert.Equal(t, "3.00", o.SrcTokenAmountUi)
}

func TestReconcile_Errors(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)

	raw := rawOrder("1", 100, 0, future)
	raw.SrcTokenAmount = nil
	_, err := r.Reconcile(raw, now)
	var malformed *types.MalformedOrderError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "srcTokenAmount", malformed.Field)

	raw = rawOrder("2", 100, 0, future)
	raw.DstToken = cake
	_, err = r.Reconcile(raw, now)
	assert.ErrorIs(t, err, types.ErrUnknownToken)
}

func TestReconcileRecords_PartialFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewReconciler(tokenList, price.Table{}, zap.New(core))

	records := []any{
		map[string]any{
			"id": "bad", "srcToken": wbnb, "dstToken": busd,
			"tradeSize": "10", "deadline": json.Number("1700003600"),
		},
		map[string]any{
			"id": json.Number("2"), "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": "100", "tradeSize": "10", "deadline": json.Number("1700003600"),
			"time": json.Number("1699990000"),
		},
		map[string]any{
			"id": "3", "srcToken": wbnb, "dstToken": cake,
			"srcTokenAmount": "100", "tradeSize": "10", "deadline": "1700003600",
		},
		"not an order",
		map[string]any{
			"id": float64(4), "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": float64(100), "srcFilledAmount": float64(100),
			"tradeSize": float64(10), "deadline": float64(past),
			"time": float64(1699999000),
		},
	}

	orders := r.ReconcileRecords(records, now)
	require.Len(t, orders, 2)
	assert.Equal(t, "4", orders[0].ID, "newest first")
	assert.Equal(t, types.OrderFilled, orders[0].Status)
	assert.Equal(t, "2", orders[1].ID)
	assert.Equal(t, types.OrderOpen, orders[1].Status)
	assert.Equal(t, 3, logs.FilterMessage("dropping order").Len())
}

func TestParseRawOrder(t *testing.T) {
	raw, err := ParseRawOrder(map[string]any{
		"id":           "42",
		"srcToken":     strings.ToLower(wbnb),
		"dstToken":     busd,
		"srcAmount":    "0x64",
		"srcBidAmount": json.Number("10"),
		"dstMinAmount": "1",
		"deadline":     json.Number("1700003600"),
		"bidDelay":     json.Number("60"),
		"createdAt":    json.Number("1699990000"),
		"status":       "canceled",
	})
	require.NoError(t, err)

	assert.Equal(t, "42", raw.ID)
	assert.Equal(t, wbnb, raw.SrcToken)
	assert.Equal(t, "100", raw.SrcTokenAmount.String())
	assert.Equal(t, "10", raw.TradeSize.String())
	assert.Equal(t, "0", raw.SrcFilledAmount.String())
	assert.Equal(t, "1", raw.DstMinAmount.String())
	assert.Equal(t, int64(1700003600), raw.Deadline)
	assert.Equal(t, int64(60), raw.Delay)
	assert.Equal(t, int64(1699990000), raw.Time)
	assert.True(t, raw.Canceled)
}

func TestParseRawOrder_Malformed(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"id": "1", "srcToken": wbnb, "dstToken": busd,
			"srcTokenAmount": "100", "tradeSize": "10", "deadline": "1700003600",
		}
	}

	tests := []struct {
		field  string
		mutate func(map[string]any)
	}{
		{field: "id", mutate: func(m map[string]any) { delete(m, "id") }},
		{field: "srcToken", mutate: func(m map[string]any) { m["srcToken"] = "0x12" }},
		{field: "dstToken", mutate: func(m map[string]any) { delete(m, "dstToken") }},
		{field: "srcTokenAmount", mutate: func(m map[string]any) { delete(m, "srcTokenAmount") }},
		{field: "srcTokenAmount", mutate: func(m map[string]any) { m["srcTokenAmount"] = "-5" }},
		{field: "tradeSize", mutate: func(m map[string]any) { m["tradeSize"] = 1.5 }},
		{field: "deadline", mutate: func(m map[string]any) { m["deadline"] = "soon" }},
		{field: "srcFilledAmount", mutate: func(m map[string]any) { m["srcFilledAmount"] = true }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fields := valid()
			tt.mutate(fields)

			_, err := ParseRawOrder(fields)
			var malformed *types.MalformedOrderError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestGroupByStatus(t *testing.T) {
	r := NewReconciler(tokenList, price.Table{}, nil)
	orders := r.ReconcileAll([]types.RawOrder{
		rawOrder("1", 100, 100, past),
		rawOrder("2", 100, 0, past),
		rawOrder("3", 100, 0, future),
		rawOrder("4", 100, 50, future),
	}, now)

	groups := GroupByStatus(orders)
	assert.Len(t, groups[types.OrderFilled], 1)
	assert.Len(t, groups[types.OrderExpired], 1)
	assert.Len(t, groups[types.OrderOpen], 2)
	assert.Empty(t, groups[types.OrderCanceled])
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "0s", formatInterval(0))
	assert.Equal(t, "1m 30s", formatInterval(90*time.Second))
	assert.Equal(t, "2h", formatInterval(2*time.Hour))
	assert.Equal(t, "7d", formatInterval(7*24*time.Hour))
}
