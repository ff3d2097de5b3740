package types

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a TWAP order
type OrderStatus string

const (
	OrderOpen     OrderStatus = "Open"     // Still executing chunks
	OrderCanceled OrderStatus = "Canceled" // Cancellation observed on-chain
	OrderFilled   OrderStatus = "Filled"   // Nothing left to execute
	OrderExpired  OrderStatus = "Expired"  // Deadline passed with funds remaining
)

// OrderStatuses lists every status in display order
var OrderStatuses = []OrderStatus{OrderOpen, OrderFilled, OrderExpired, OrderCanceled}

// RawOrder is an order record after boundary validation, before any derivation
type RawOrder struct {
	ID              string   `json:"id"`
	SrcToken        string   `json:"src_token"`
	DstToken        string   `json:"dst_token"`
	SrcTokenAmount  *big.Int `json:"src_token_amount"`
	SrcFilledAmount *big.Int `json:"src_filled_amount"`
	TradeSize       *big.Int `json:"trade_size"`
	DstMinAmount    *big.Int `json:"dst_min_amount,omitempty"`
	Deadline        int64    `json:"deadline"` // unix seconds
	Delay           int64    `json:"delay"`    // seconds between chunks
	Time            int64    `json:"time"`     // unix seconds of creation
	Canceled        bool     `json:"canceled"`
}

// Order is a fully derived order snapshot. It is rebuilt on every refresh, never mutated.
type Order struct {
	RawOrder

	SrcTokenInfo TokenInfo `json:"src_token_info"`
	DstTokenInfo TokenInfo `json:"dst_token_info"`

	Status             OrderStatus     `json:"status"`
	Progress           float64         `json:"progress"`
	SrcRemainingAmount *big.Int        `json:"src_remaining_amount"`
	IsMarketOrder      bool            `json:"is_market_order"`
	DstLimitPrice      decimal.Decimal `json:"dst_limit_price"`
	DstAmount          *big.Int        `json:"dst_amount,omitempty"`

	SrcTokenAmountUi     string `json:"src_token_amount_ui"`
	DstTokenAmountUi     string `json:"dst_token_amount_ui"`
	TradeSizeAmountUi    string `json:"trade_size_amount_ui"`
	SrcFilledAmountUi    string `json:"src_filled_amount_ui"`
	SrcRemainingAmountUi string `json:"src_remaining_amount_ui"`
	DstLimitPriceUi      string `json:"dst_limit_price_ui"`
	CreatedAtUi          string `json:"created_at_ui"`
	DeadlineUi           string `json:"deadline_ui"`
	TradeIntervalUi      string `json:"trade_interval_ui"`

	SrcUsdValueUi          string `json:"src_usd_value_ui"`
	DstUsdValueUi          string `json:"dst_usd_value_ui"`
	TradeSizeUsdValueUi    string `json:"trade_size_usd_value_ui"`
	SrcFilledUsdValueUi    string `json:"src_filled_usd_value_ui"`
	SrcRemainingUsdValueUi string `json:"src_remaining_usd_value_ui"`
}
