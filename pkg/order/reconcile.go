package order

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"twap-adapter/pkg/price"
	"twap-adapter/pkg/token"
	"twap-adapter/pkg/types"
)

// marketSentinel is the dstMinAmount TWAP contracts receive for market orders
var marketSentinel = big.NewInt(1)

// Reconciler derives display orders from raw records against one token list and price table
type Reconciler struct {
	tokens    []types.TokenInfo
	prices    price.Table
	precision int32
	logger    *zap.Logger
}

// NewReconciler creates a reconciler. The token list should come from the token resolver.
func NewReconciler(tokens []types.TokenInfo, prices price.Table, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		tokens:    tokens,
		prices:    prices,
		precision: DefaultAmountPrecision,
		logger:    logger,
	}
}

// SetAmountPrecision sets the fraction digits used for amount strings
func (r *Reconciler) SetAmountPrecision(precision int32) {
	if precision < 0 {
		precision = 0
	}
	r.precision = precision
}

// Reconcile derives every computed field of one order at the given time
func (r *Reconciler) Reconcile(raw types.RawOrder, now time.Time) (types.Order, error) {
	if raw.SrcTokenAmount == nil {
		return types.Order{}, &types.MalformedOrderError{ID: raw.ID, Field: "srcTokenAmount"}
	}
	if raw.TradeSize == nil {
		return types.Order{}, &types.MalformedOrderError{ID: raw.ID, Field: "tradeSize"}
	}

	srcInfo, ok := token.FindToken(r.tokens, raw.SrcToken)
	if !ok {
		return types.Order{}, fmt.Errorf("order %s: src token %s: %w", raw.ID, raw.SrcToken, types.ErrUnknownToken)
	}
	dstInfo, ok := token.FindToken(r.tokens, raw.DstToken)
	if !ok {
		return types.Order{}, fmt.Errorf("order %s: dst token %s: %w", raw.ID, raw.DstToken, types.ErrUnknownToken)
	}

	filled := raw.SrcFilledAmount
	if filled == nil {
		filled = new(big.Int)
	}
	raw.SrcFilledAmount = filled

	remaining := new(big.Int).Sub(raw.SrcTokenAmount, filled)
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}

	o := types.Order{
		RawOrder:           raw,
		SrcTokenInfo:       srcInfo,
		DstTokenInfo:       dstInfo,
		SrcRemainingAmount: remaining,
		Progress:           progress(filled, raw.SrcTokenAmount),
		Status:             status(raw, remaining, now),
		IsMarketOrder:      isMarketOrder(raw.DstMinAmount),
	}

	if !o.IsMarketOrder && raw.TradeSize.Sign() > 0 {
		o.DstLimitPrice = toUnits(raw.DstMinAmount, dstInfo.Decimals).Div(toUnits(raw.TradeSize, srcInfo.Decimals))
		o.DstLimitPriceUi = o.DstLimitPrice.StringFixed(r.precision)

		dstAmount := new(big.Int).Mul(raw.SrcTokenAmount, raw.DstMinAmount)
		o.DstAmount = dstAmount.Quo(dstAmount, raw.TradeSize)
	}

	o.SrcTokenAmountUi = formatAmount(raw.SrcTokenAmount, srcInfo.Decimals, r.precision)
	o.DstTokenAmountUi = formatAmount(o.DstAmount, dstInfo.Decimals, r.precision)
	o.TradeSizeAmountUi = formatAmount(raw.TradeSize, srcInfo.Decimals, r.precision)
	o.SrcFilledAmountUi = formatAmount(filled, srcInfo.Decimals, r.precision)
	o.SrcRemainingAmountUi = formatAmount(remaining, srcInfo.Decimals, r.precision)

	o.CreatedAtUi = formatTime(raw.Time)
	o.DeadlineUi = formatTime(raw.Deadline)
	o.TradeIntervalUi = formatInterval(time.Duration(raw.Delay) * time.Second)

	o.SrcUsdValueUi = r.usd(raw.SrcTokenAmount, srcInfo)
	o.DstUsdValueUi = r.usd(o.DstAmount, dstInfo)
	o.TradeSizeUsdValueUi = r.usd(raw.TradeSize, srcInfo)
	o.SrcFilledUsdValueUi = r.usd(filled, srcInfo)
	o.SrcRemainingUsdValueUi = r.usd(remaining, srcInfo)

	return o, nil
}

// ReconcileAll derives every order it can. Orders that fail are dropped with a
// warning; the rest are returned newest first.
func (r *Reconciler) ReconcileAll(raws []types.RawOrder, now time.Time) []types.Order {
	orders := make([]types.Order, 0, len(raws))
	for _, raw := range raws {
		o, err := r.Reconcile(raw, now)
		if err != nil {
			r.logger.Warn("dropping order", zap.String("id", raw.ID), zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	sortNewestFirst(orders)
	return orders
}

// ReconcileRecords validates untyped indexer records and reconciles the valid ones
func (r *Reconciler) ReconcileRecords(records []any, now time.Time) []types.Order {
	raws := make([]types.RawOrder, 0, len(records))
	for i, rec := range records {
		fields, ok := rec.(map[string]any)
		if !ok {
			r.logger.Warn("dropping order", zap.Int("index", i), zap.String("reason", fmt.Sprintf("record is %T", rec)))
			continue
		}
		raw, err := ParseRawOrder(fields)
		if err != nil {
			r.logger.Warn("dropping order", zap.Int("index", i), zap.Error(err))
			continue
		}
		raws = append(raws, raw)
	}
	return r.ReconcileAll(raws, now)
}

// GroupByStatus splits orders into per-status lists, keeping their order
func GroupByStatus(orders []types.Order) map[types.OrderStatus][]types.Order {
	groups := make(map[types.OrderStatus][]types.Order, len(types.OrderStatuses))
	for _, o := range orders {
		groups[o.Status] = append(groups[o.Status], o)
	}
	return groups
}

func (r *Reconciler) usd(amount *big.Int, t types.TokenInfo) string {
	if amount == nil {
		return ""
	}
	p, ok := r.prices.USD(t.Address)
	if !ok {
		return ""
	}
	return toUnits(amount, t.Decimals).Mul(p).StringFixed(UsdPrecision)
}

func progress(filled, total *big.Int) float64 {
	if total.Sign() == 0 {
		return 0
	}
	ratio, _ := new(big.Rat).SetFrac(filled, total).Float64()
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// status applies the precedence canceled, filled, expired, open
func status(raw types.RawOrder, remaining *big.Int, now time.Time) types.OrderStatus {
	switch {
	case raw.Canceled:
		return types.OrderCanceled
	case remaining.Sign() == 0:
		return types.OrderFilled
	case now.Unix() >= raw.Deadline:
		return types.OrderExpired
	}
	return types.OrderOpen
}

func isMarketOrder(dstMinAmount *big.Int) bool {
	return dstMinAmount == nil || dstMinAmount.Cmp(marketSentinel) <= 0
}

func sortNewestFirst(orders []types.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Time != orders[j].Time {
			return orders[i].Time > orders[j].Time
		}
		return orders[i].ID > orders[j].ID
	})
}
